// Package app holds the dependencies shared by HTTP handlers and middleware.
package app

import (
	"log/slog"

	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/clock"
	"subwaychallenge.org/pathfinder/internal/journey"
	"subwaychallenge.org/pathfinder/internal/metrics"
	"subwaychallenge.org/pathfinder/internal/registry"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Store    *gtfsdb.Client
	Registry *registry.Registry
	Resolver *journey.Resolver
	Planner  *journey.Planner
}

// Close releases the store. It is safe on a partially built Application.
func (app *Application) Close() error {
	if app.Store == nil {
		return nil
	}
	return app.Store.Close()
}
