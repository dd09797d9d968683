package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStaticFeedURL   = "http://web.mta.info/developers/data/nyct/subway/google_transit.zip"
	DefaultRealtimeBaseURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/"
	DefaultRouteMarkers    = "ABGJNL1"
	DefaultRetainMarker    = "1"
)

// StaticFeed locates the static GTFS zip.
type StaticFeed struct {
	URL             string `json:"url" yaml:"url" validate:"required"`
	AuthHeaderName  string `json:"auth-header-name" yaml:"auth-header-name"`
	AuthHeaderValue string `json:"auth-header-value" yaml:"auth-header-value"`
}

// RealtimeFeed locates the live trip feeds.
type RealtimeFeed struct {
	BaseURL         string `json:"base-url" yaml:"base-url" validate:"required,url"`
	AuthHeaderName  string `json:"auth-header-name" yaml:"auth-header-name"`
	AuthHeaderValue string `json:"auth-header-value" yaml:"auth-header-value"`
	RouteMarkers    string `json:"route-markers" yaml:"route-markers" validate:"required"`
	TimeoutSeconds  int    `json:"timeout-seconds" yaml:"timeout-seconds" validate:"gte=1"`
	MaxAttempts     int    `json:"max-attempts" yaml:"max-attempts" validate:"gte=1,lte=10"`
	// CacheSeconds of -1 turns the feed cache off.
	CacheSeconds    int    `json:"cache-seconds" yaml:"cache-seconds" validate:"gte=-1"`
}

// NormalizerOptions are the retention markers applied to stops.txt and routes.txt.
type NormalizerOptions struct {
	StopRetainMarker  string `json:"stop-retain-marker" yaml:"stop-retain-marker"`
	RouteRetainMarker string `json:"route-retain-marker" yaml:"route-retain-marker"`
}

// FileConfig is the on-disk configuration, in JSON or YAML.
type FileConfig struct {
	Port         int               `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Env          string            `json:"env" yaml:"env" validate:"oneof=development test production"`
	ApiKeys      []string          `json:"api-keys" yaml:"api-keys" validate:"min=1,dive,required"`
	RateLimit    int               `json:"rate-limit" yaml:"rate-limit" validate:"gte=1"`
	GzipMinSize  int               `json:"gzip-min-size" yaml:"gzip-min-size" validate:"gte=-1"`
	StaticFeed   StaticFeed        `json:"static-feed" yaml:"static-feed"`
	RealtimeFeed RealtimeFeed      `json:"realtime-feed" yaml:"realtime-feed"`
	DataPath     string            `json:"data-path" yaml:"data-path"`
	Normalizer   NormalizerOptions `json:"normalizer" yaml:"normalizer"`
}

// LoadFromFile reads, defaults and validates a configuration file. Files ending
// in .yml or .yaml are parsed as YAML, everything else as JSON.
func LoadFromFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *FileConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if len(c.ApiKeys) == 0 {
		c.ApiKeys = []string{"test"}
	}
	if c.RateLimit == 0 {
		c.RateLimit = 100
	}
	if c.GzipMinSize == 0 {
		c.GzipMinSize = DefaultGzipMinSize
	}
	if c.StaticFeed.URL == "" {
		c.StaticFeed.URL = DefaultStaticFeedURL
	}
	if c.RealtimeFeed.BaseURL == "" {
		c.RealtimeFeed.BaseURL = DefaultRealtimeBaseURL
	}
	if c.RealtimeFeed.RouteMarkers == "" {
		c.RealtimeFeed.RouteMarkers = DefaultRouteMarkers
	}
	if c.RealtimeFeed.TimeoutSeconds == 0 {
		c.RealtimeFeed.TimeoutSeconds = 15
	}
	if c.RealtimeFeed.MaxAttempts == 0 {
		c.RealtimeFeed.MaxAttempts = 3
	}
	if c.RealtimeFeed.CacheSeconds == 0 {
		c.RealtimeFeed.CacheSeconds = 30
	}
	if c.DataPath == "" {
		c.DataPath = "./gtfs.db"
	}
	if c.Normalizer.StopRetainMarker == "" {
		c.Normalizer.StopRetainMarker = DefaultRetainMarker
	}
	if c.Normalizer.RouteRetainMarker == "" {
		c.Normalizer.RouteRetainMarker = DefaultRetainMarker
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *FileConfig) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return describeValidationError(validationErrs[0])
		}
		return err
	}

	seen := make(map[string]bool, len(c.ApiKeys))
	for _, key := range c.ApiKeys {
		if seen[key] {
			return fmt.Errorf("duplicate API key found: %s", key)
		}
		seen[key] = true
	}

	if c.DataPath != ":memory:" {
		cleaned := filepath.Clean(c.DataPath)
		if strings.HasPrefix(cleaned, "..") {
			return fmt.Errorf("data-path must not traverse outside the working directory: %s", c.DataPath)
		}
	}

	return nil
}

func describeValidationError(fe validator.FieldError) error {
	switch fe.StructNamespace() {
	case "FileConfig.Port":
		return fmt.Errorf("port must be between 1 and 65535, got %v", fe.Value())
	case "FileConfig.Env":
		return fmt.Errorf("env must be one of development, test, production, got %q", fe.Value())
	case "FileConfig.RateLimit":
		return fmt.Errorf("rate-limit must be at least 1, got %v", fe.Value())
	case "FileConfig.ApiKeys":
		return errors.New("api-keys cannot be empty")
	case "FileConfig.GzipMinSize":
		return fmt.Errorf("gzip-min-size must be -1 or more, got %v", fe.Value())
	}
	if strings.HasPrefix(fe.StructNamespace(), "FileConfig.ApiKeys[") {
		return errors.New("api-keys cannot contain empty strings")
	}
	return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
}

// ToAppConfig converts the file configuration to the server Config.
func (c *FileConfig) ToAppConfig() Config {
	return Config{
		Port:        c.Port,
		Env:         EnvFlagToEnvironment(c.Env),
		ApiKeys:     c.ApiKeys,
		RateLimit:   c.RateLimit,
		Verbose:     true,
		GzipMinSize: c.GzipMinSize,
	}
}
