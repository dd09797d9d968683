package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/app"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/clock"
	"subwaychallenge.org/pathfinder/internal/journey"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/metrics"
	"subwaychallenge.org/pathfinder/internal/realtime"
	"subwaychallenge.org/pathfinder/internal/registry"
	"subwaychallenge.org/pathfinder/internal/restapi"
)

// ServiceConfig is everything beyond the HTTP settings that the server needs.
type ServiceConfig struct {
	DataPath     string
	Realtime     realtime.Config
	RouteMarkers string
	// DisableRealtime plans against the schedule alone.
	DisableRealtime bool
}

// ParseAPIKeys splits a comma-separated string of API keys and trims whitespace from each key.
// Returns an empty slice if the input is empty.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}

	keys := strings.Split(apiKeysFlag, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	return keys
}

// BuildApplication opens the store, loads the identifier registry and wires
// the journey core. The returned Application owns the store.
func BuildApplication(cfg appconf.Config, svc ServiceConfig) (*app.Application, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	store, err := gtfsdb.NewClient(gtfsdb.NewConfig(svc.DataPath, cfg.Env))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	clk := clock.RealClock{}
	m := metrics.New(true)
	reg := registry.New(store.Queries, clk, logger, registry.WithMetrics(m))
	if err := reg.Load(context.Background()); err != nil {
		logging.SafeCloseWithLogging(store, logger, "gtfs_store")
		return nil, err
	}
	if len(reg.AllStopIDs()) == 0 {
		logging.LogWarning(logger, "store holds no stops; run import-gtfs first",
			slog.String("data_path", svc.DataPath))
	}

	var feed journey.LiveFeed
	if !svc.DisableRealtime {
		feed = realtime.NewClient(svc.Realtime, logger, m)
	}
	resolver := journey.NewResolver(reg, feed, clk, realtime.Markers(svc.RouteMarkers), logger)

	return &app.Application{
		Config:   cfg,
		Logger:   logger,
		Clock:    clk,
		Metrics:  m,
		Store:    store,
		Registry: reg,
		Resolver: resolver,
		Planner:  journey.NewPlanner(reg, resolver, logger),
	}, nil
}

// CreateServer creates the HTTP server with routes and middleware applied.
// The caller shuts the returned API down once the server has stopped.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.SetupAPIRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, api
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully within 30
// seconds and releases the API and the application.
func Run(srv *http.Server, api *restapi.RestAPI, coreApp *app.Application) error {
	logger := coreApp.Logger
	logger.Info("starting server", "addr", srv.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	api.Shutdown()
	logging.SafeCloseWithLogging(coreApp, logger, "application")

	logger.Info("server exited")
	return nil
}
