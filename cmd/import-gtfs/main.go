// Command import-gtfs loads a static GTFS feed into the SQLite store read by
// the API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/static"
)

func main() {
	_ = godotenv.Load()

	var cfg ImportConfig
	var envFlag, configPath string

	flag.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file; overrides the other flags")
	flag.StringVar(&cfg.Source, "gtfs-url", appconf.DefaultStaticFeedURL, "URL or local path of the static GTFS zip")
	flag.StringVar(&cfg.AuthHeaderName, "gtfs-auth-header-name", os.Getenv("STATIC_AUTH_HEADER_NAME"), "Optional header name for the static feed")
	flag.StringVar(&cfg.AuthHeaderValue, "gtfs-auth-header-value", os.Getenv("STATIC_AUTH_HEADER_VALUE"), "Optional header value for the static feed")
	flag.StringVar(&cfg.DataPath, "data-path", "./gtfs.db", "Path to the SQLite database to write")
	flag.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&cfg.Normalizer.StopRetainMarker, "stop-retain-marker", static.DefaultRetainMarker, "location_type value of the stops to keep")
	flag.StringVar(&cfg.Normalizer.RouteRetainMarker, "route-retain-marker", static.DefaultRetainMarker, "route_type value of the routes to keep")
	flag.Parse()

	logger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)
	cfg.Env = appconf.EnvFlagToEnvironment(envFlag)

	if configPath != "" {
		fileCfg, err := appconf.LoadFromFile(configPath)
		if err != nil {
			logging.LogError(logger, "failed to load config file", err, slog.String("path", configPath))
			os.Exit(1)
		}
		cfg.Source = fileCfg.StaticFeed.URL
		cfg.AuthHeaderName = fileCfg.StaticFeed.AuthHeaderName
		cfg.AuthHeaderValue = fileCfg.StaticFeed.AuthHeaderValue
		cfg.DataPath = fileCfg.DataPath
		cfg.Env = appconf.EnvFlagToEnvironment(fileCfg.Env)
		cfg.Normalizer = static.Options{
			StopRetainMarker:  fileCfg.Normalizer.StopRetainMarker,
			RouteRetainMarker: fileCfg.Normalizer.RouteRetainMarker,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counts, err := Import(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "import failed", err)
		os.Exit(1)
	}

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		logger.Info("table_rows", slog.String("table", table), slog.Int("rows", counts[table]))
	}
}
