package appconf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_ValidJSON(t *testing.T) {
	config, err := LoadFromFile(filepath.Join("testdata", "valid.json"))
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "production", config.Env)
	assert.Equal(t, []string{"key1", "key2"}, config.ApiKeys)
	assert.Equal(t, 50, config.RateLimit)
	assert.Equal(t, -1, config.GzipMinSize)
	assert.Equal(t, "https://example.com/google_transit.zip", config.StaticFeed.URL)
	assert.Equal(t, "https://feeds.example.com/", config.RealtimeFeed.BaseURL)
	assert.Equal(t, "x-api-key", config.RealtimeFeed.AuthHeaderName)
	assert.Equal(t, "secret", config.RealtimeFeed.AuthHeaderValue)
	assert.Equal(t, "AL", config.RealtimeFeed.RouteMarkers)
	assert.Equal(t, 5, config.RealtimeFeed.TimeoutSeconds)
	assert.Equal(t, 2, config.RealtimeFeed.MaxAttempts)
	assert.Equal(t, -1, config.RealtimeFeed.CacheSeconds)
	assert.Equal(t, "/var/lib/pathfinder/gtfs.db", config.DataPath)
	assert.Equal(t, DefaultRetainMarker, config.Normalizer.StopRetainMarker)
}

func TestLoadFromFile_ValidYAML(t *testing.T) {
	config, err := LoadFromFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Port)
	assert.Equal(t, "test", config.Env)
	assert.Equal(t, []string{"alpha"}, config.ApiKeys)
	assert.Equal(t, "1", config.RealtimeFeed.RouteMarkers)
	assert.Equal(t, ":memory:", config.DataPath)
	assert.Equal(t, "0", config.Normalizer.StopRetainMarker)
	assert.Equal(t, DefaultRetainMarker, config.Normalizer.RouteRetainMarker)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	config, err := LoadFromFile(filepath.Join("testdata", "minimal.json"))
	require.NoError(t, err)

	assert.Equal(t, 4000, config.Port)
	assert.Equal(t, "development", config.Env)
	assert.Equal(t, []string{"test"}, config.ApiKeys)
	assert.Equal(t, 100, config.RateLimit)
	assert.Equal(t, DefaultGzipMinSize, config.GzipMinSize)
	assert.Equal(t, DefaultStaticFeedURL, config.StaticFeed.URL)
	assert.Equal(t, DefaultRealtimeBaseURL, config.RealtimeFeed.BaseURL)
	assert.Equal(t, DefaultRouteMarkers, config.RealtimeFeed.RouteMarkers)
	assert.Equal(t, 15, config.RealtimeFeed.TimeoutSeconds)
	assert.Equal(t, 3, config.RealtimeFeed.MaxAttempts)
	assert.Equal(t, 30, config.RealtimeFeed.CacheSeconds)
	assert.Equal(t, "./gtfs.db", config.DataPath)
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{"missing file", "does_not_exist.json", "failed to stat config file"},
		{"malformed json", "malformed.json", "failed to parse JSON config"},
		{"port out of range", "invalid_port.json", "port must be between"},
		{"unknown env", "invalid_env.yml", "env must be one of"},
		{"empty api key", "empty_key.json", "api-keys cannot contain empty strings"},
		{"duplicate api key", "duplicate_key.json", "duplicate API key found"},
		{"path traversal", "traversal.json", "data-path must not traverse"},
		{"negative rate limit", "bad_rate.yaml", "rate-limit must be at least 1"},
		{"gzip threshold below -1", "bad_gzip.json", "gzip-min-size must be -1 or more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToAppConfig(t *testing.T) {
	config := FileConfig{
		Port:        8080,
		Env:         "production",
		ApiKeys:     []string{"k"},
		RateLimit:   7,
		GzipMinSize: 2048,
	}

	appConfig := config.ToAppConfig()
	assert.Equal(t, 8080, appConfig.Port)
	assert.Equal(t, Production, appConfig.Env)
	assert.Equal(t, []string{"k"}, appConfig.ApiKeys)
	assert.Equal(t, 7, appConfig.RateLimit)
	assert.True(t, appConfig.Verbose)
	assert.Equal(t, 2048, appConfig.GzipMinSize)
}

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
	}{
		{"development", Development},
		{"test", Test},
		{"production", Production},
		{"Production", Development},
		{"", Development},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvFlagToEnvironment(tt.input))
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	assert.Equal(t, "development", Development.String())
	assert.Equal(t, "test", Test.String())
	assert.Equal(t, "production", Production.String())
}
