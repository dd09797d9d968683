package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/realtime"
)

func main() {
	// Feed credentials usually live in .env.
	_ = godotenv.Load()

	var cfg appconf.Config
	var svc ServiceConfig
	var apiKeysFlag, envFlag, configPath string
	var timeoutSeconds, cacheSeconds int

	flag.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file; overrides the other flags")
	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", "test", "Comma Separated API Keys (test, etc)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 100, "Requests per second per API key for rate limiting")
	flag.IntVar(&cfg.GzipMinSize, "gzip-min-size", appconf.DefaultGzipMinSize, "Smallest response in bytes to gzip; -1 disables compression")
	flag.StringVar(&svc.DataPath, "data-path", "./gtfs.db", "Path to the SQLite database written by import-gtfs")
	flag.StringVar(&svc.Realtime.BaseURL, "realtime-base-url", appconf.DefaultRealtimeBaseURL, "Base URL of the GTFS-realtime subway feeds")
	flag.StringVar(&svc.Realtime.AuthHeaderKey, "realtime-auth-header-name", os.Getenv("REALTIME_AUTH_HEADER_NAME"), "Optional header name for GTFS-RT auth")
	flag.StringVar(&svc.Realtime.AuthHeaderValue, "realtime-auth-header-value", os.Getenv("REALTIME_AUTH_HEADER_VALUE"), "Optional header value for GTFS-RT auth")
	flag.StringVar(&svc.RouteMarkers, "route-markers", realtime.DefaultMarkers, "One route id per live feed to poll")
	flag.IntVar(&timeoutSeconds, "realtime-timeout", 15, "Seconds allowed per live feed request")
	flag.IntVar(&svc.Realtime.MaxAttempts, "realtime-max-attempts", 3, "Attempts per live feed before skipping it")
	flag.IntVar(&cacheSeconds, "realtime-cache-seconds", 30, "Seconds to reuse a fetched live feed; 0 or less fetches every time")
	flag.BoolVar(&svc.DisableRealtime, "no-realtime", false, "Plan against the schedule alone")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if configPath != "" {
		fileCfg, err := appconf.LoadFromFile(configPath)
		if err != nil {
			logger.Error("failed to load config file", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = fileCfg.ToAppConfig()
		svc.DataPath = fileCfg.DataPath
		svc.RouteMarkers = fileCfg.RealtimeFeed.RouteMarkers
		svc.Realtime.BaseURL = fileCfg.RealtimeFeed.BaseURL
		svc.Realtime.AuthHeaderKey = fileCfg.RealtimeFeed.AuthHeaderName
		svc.Realtime.AuthHeaderValue = fileCfg.RealtimeFeed.AuthHeaderValue
		svc.Realtime.MaxAttempts = fileCfg.RealtimeFeed.MaxAttempts
		timeoutSeconds = fileCfg.RealtimeFeed.TimeoutSeconds
		cacheSeconds = fileCfg.RealtimeFeed.CacheSeconds
	} else {
		cfg.Verbose = true
		cfg.ApiKeys = ParseAPIKeys(apiKeysFlag)
		cfg.Env = appconf.EnvFlagToEnvironment(envFlag)
	}
	svc.Realtime.Timeout = time.Duration(timeoutSeconds) * time.Second
	svc.Realtime.RetryBackoff = realtime.DefaultConfig().RetryBackoff
	if cacheSeconds > 0 {
		svc.Realtime.CacheTTL = time.Duration(cacheSeconds) * time.Second
	}

	coreApp, err := BuildApplication(cfg, svc)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)

	if err := Run(srv, api, coreApp); err != nil {
		coreApp.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
