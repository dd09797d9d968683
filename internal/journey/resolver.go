package journey

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/clock"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/transit"
)

// Registry is the identifier registry surface the journey core reads.
type Registry interface {
	Load(ctx context.Context) error
	StopPK(stopID string) (int64, bool)
	StopID(pk int64) (string, bool)
	RouteID(pk int64) (string, bool)
	ShapeID(pk int64) (string, bool)
	StopName(stopID string) (string, error)
	IsValidStop(stopID string) bool
	Transfers(ctx context.Context) ([]transit.Transfer, error)
	DepartureTime(ctx context.Context, stopID, tripID string) (time.Time, error)
	ScheduledTrips(ctx context.Context, class transit.ServiceClass) ([]gtfsdb.ScheduledTrip, error)
	TripStopSequence(ctx context.Context, tripID string) ([]gtfsdb.StopTimeEntry, error)
}

// LiveFeed yields the live trips carried by a route marker's feed.
type LiveFeed interface {
	TripsForMarker(ctx context.Context, marker string) ([]transit.LiveTrip, error)
}

// Catalog is the merged set of trips running today, keyed by trip id.
type Catalog struct {
	trips     map[string]Trip
	realtime  int
	scheduled int
}

// Trips returns every trip ordered by trip id.
func (c *Catalog) Trips() []Trip {
	out := make([]Trip, 0, len(c.trips))
	for _, t := range c.trips {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripID < out[j].TripID })
	return out
}

func (c *Catalog) Lookup(tripID string) (Trip, bool) {
	t, ok := c.trips[tripID]
	return t, ok
}

func (c *Catalog) Len() int { return len(c.trips) }

// Counts returns how many catalog entries are scheduled and realtime.
func (c *Catalog) Counts() (scheduled, realtime int) {
	return c.scheduled, c.realtime
}

// Resolver builds the catalog of trips running today.
type Resolver struct {
	reg     Registry
	feed    LiveFeed
	clock   clock.Clock
	markers []string
	logger  *slog.Logger
}

// NewResolver returns a resolver that overlays the live trips of each marker
// on today's schedule. feed may be nil to use the schedule alone.
func NewResolver(reg Registry, feed LiveFeed, clk clock.Clock, markers []string, logger *slog.Logger) *Resolver {
	return &Resolver{
		reg:     reg,
		feed:    feed,
		clock:   clk,
		markers: markers,
		logger:  logging.OrDefault(logger).With(slog.String("component", "trip_resolver")),
	}
}

// TripsToday merges today's scheduled trips with the live feed, live trips
// replacing scheduled ones with the same id. A store failure is returned. A
// marker whose feed cannot be read is logged and skipped.
func (r *Resolver) TripsToday(ctx context.Context) (*Catalog, error) {
	class := TodaysServiceClass(r.clock.Now())

	scheduled, err := r.reg.ScheduledTrips(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled trips: %w", err)
	}

	catalog := &Catalog{trips: make(map[string]Trip, len(scheduled))}
	for _, st := range scheduled {
		routeID, _ := r.reg.RouteID(st.RouteID)
		shapeID, _ := r.reg.ShapeID(st.ShapeID)
		catalog.trips[st.ExternalID] = NewScheduledTrip(routeID, st.ExternalID, shapeID, st.ServiceClass)
	}

	if r.feed != nil {
		for _, marker := range r.markers {
			live, err := r.feed.TripsForMarker(ctx, marker)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logging.LogError(r.logger, "skipping live feed", err, slog.String("marker", marker))
				continue
			}
			for _, lt := range live {
				catalog.trips[lt.TripID] = NewRealtimeTrip(lt)
			}
		}
	}

	for _, t := range catalog.trips {
		if t.IsRealtime() {
			catalog.realtime++
		} else {
			catalog.scheduled++
		}
	}

	logging.LogOperation(r.logger, "trips_resolved",
		slog.String("service_class", class.String()),
		slog.Int("scheduled", catalog.scheduled),
		slog.Int("realtime", catalog.realtime))

	return catalog, nil
}
