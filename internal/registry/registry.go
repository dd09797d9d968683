// Package registry maps external transit identifiers to the store's surrogate
// keys and back. A Registry loads its maps once and is read-only afterwards.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/rtree"
	"github.com/twpayne/go-polyline"
	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/clock"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/metrics"
	"subwaychallenge.org/pathfinder/internal/transit"
	"subwaychallenge.org/pathfinder/internal/utils"
)

// Store is the read side of gtfsdb the registry depends on.
type Store interface {
	ListStops(ctx context.Context) ([]gtfsdb.Stop, error)
	ListRoutes(ctx context.Context) ([]gtfsdb.Route, error)
	ListShapes(ctx context.Context) ([]gtfsdb.Shape, error)
	ListScheduledTrips(ctx context.Context) ([]gtfsdb.ScheduledTrip, error)
	ListScheduledTripsByServiceClass(ctx context.Context, class transit.ServiceClass) ([]gtfsdb.ScheduledTrip, error)
	ListTransfers(ctx context.Context) ([]gtfsdb.Transfer, error)
	ListStopTimesForTrip(ctx context.Context, tripID int64) ([]gtfsdb.StopTimeEntry, error)
	GetStopTimeForTripAndStop(ctx context.Context, tripID, stopID int64) (gtfsdb.StopTimeEntry, error)
	ListShapePoints(ctx context.Context, shapeID int64) ([]gtfsdb.ShapePoint, error)
}

// idMap is a bidirectional external id / surrogate key mapping.
type idMap struct {
	toPK map[string]int64
	toID map[int64]string
}

func newIDMap(size int) idMap {
	return idMap{toPK: make(map[string]int64, size), toID: make(map[int64]string, size)}
}

func (m idMap) add(id string, pk int64) {
	m.toPK[id] = pk
	m.toID[pk] = id
}

func (m idMap) pk(id string) (int64, bool) {
	if id == "" {
		return 0, false
	}
	pk, ok := m.toPK[id]
	return pk, ok
}

func (m idMap) id(pk int64) (string, bool) {
	if pk <= 0 {
		return "", false
	}
	id, ok := m.toID[pk]
	return id, ok
}

// snapshot is everything Load reads. It is never mutated after publication.
type snapshot struct {
	stops     idMap
	routes    idMap
	trips     idMap
	shapes    idMap
	stopNames map[string]string
	stopRows  []gtfsdb.Stop
	routeRows []gtfsdb.Route
	stopIndex *rtree.RTree
}

// ErrNotLoaded is returned by strict lookups on a registry that has not been
// loaded, so an unloaded registry is never mistaken for an unknown id.
var ErrNotLoaded = errors.New("identifier registry not loaded")

// Registry is safe for concurrent use.
type Registry struct {
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	loadMu sync.Mutex
	state  atomic.Pointer[snapshot]

	transfersMu sync.Mutex
	transfers   []transit.Transfer
	transfersOK bool
}

type Option func(*Registry)

// WithMetrics records load timings and entity counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func New(store Store, clk clock.Clock, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		clock:  clk,
		logger: logging.OrDefault(logger).With(slog.String("component", "registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads every identifier map from the store. Concurrent first callers
// share a single load; later calls return immediately. A failed load leaves
// the registry empty so the next call retries.
func (r *Registry) Load(ctx context.Context) error {
	if r.state.Load() != nil {
		return nil
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.state.Load() != nil {
		return nil
	}

	start := time.Now()
	snap, err := r.readSnapshot(ctx)
	if err != nil {
		logging.LogError(r.logger, "registry load failed", err)
		return fmt.Errorf("failed to load identifier registry: %w", err)
	}
	r.state.Store(snap)

	elapsed := time.Since(start)
	logging.LogOperation(r.logger, "registry_loaded",
		slog.Int("stops", len(snap.stops.toPK)),
		slog.Int("routes", len(snap.routes.toPK)),
		slog.Int("trips", len(snap.trips.toPK)),
		slog.Int("shapes", len(snap.shapes.toPK)),
		slog.Duration("duration", elapsed))

	if r.metrics != nil {
		r.metrics.RegistryLoadDuration.Observe(elapsed.Seconds())
		r.metrics.RegistryEntities.WithLabelValues("stops").Set(float64(len(snap.stops.toPK)))
		r.metrics.RegistryEntities.WithLabelValues("routes").Set(float64(len(snap.routes.toPK)))
		r.metrics.RegistryEntities.WithLabelValues("trips").Set(float64(len(snap.trips.toPK)))
		r.metrics.RegistryEntities.WithLabelValues("shapes").Set(float64(len(snap.shapes.toPK)))
	}
	return nil
}

func (r *Registry) readSnapshot(ctx context.Context) (*snapshot, error) {
	stops, err := r.store.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("stops: %w", err)
	}
	routes, err := r.store.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	trips, err := r.store.ListScheduledTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("trips: %w", err)
	}
	shapes, err := r.store.ListShapes(ctx)
	if err != nil {
		return nil, fmt.Errorf("shapes: %w", err)
	}

	snap := &snapshot{
		stops:     newIDMap(len(stops)),
		routes:    newIDMap(len(routes)),
		trips:     newIDMap(len(trips)),
		shapes:    newIDMap(len(shapes)),
		stopNames: make(map[string]string, len(stops)),
		stopRows:  stops,
		routeRows: routes,
		stopIndex: &rtree.RTree{},
	}
	for _, s := range stops {
		snap.stops.add(s.ExternalID, s.ID)
		snap.stopNames[s.ExternalID] = s.Name
		snap.stopIndex.Insert([2]float64{s.Lat, s.Lon}, [2]float64{s.Lat, s.Lon}, s)
	}
	for _, rt := range routes {
		snap.routes.add(rt.ExternalID, rt.ID)
	}
	for _, t := range trips {
		snap.trips.add(t.ExternalID, t.ID)
	}
	for _, s := range shapes {
		snap.shapes.add(s.ExternalID, s.ID)
	}
	return snap, nil
}

// Loaded reports whether Load has completed successfully.
func (r *Registry) Loaded() bool {
	return r.state.Load() != nil
}

func (r *Registry) snap() *snapshot {
	if s := r.state.Load(); s != nil {
		return s
	}
	return &snapshot{}
}

// Lookups report a miss with ok=false. Unknown ids, empty ids, non-positive
// keys and calls before Load all miss.

func (r *Registry) StopPK(stopID string) (int64, bool) { return r.snap().stops.pk(stopID) }
func (r *Registry) StopID(pk int64) (string, bool) { return r.snap().stops.id(pk) }
func (r *Registry) RoutePK(routeID string) (int64, bool) { return r.snap().routes.pk(routeID) }
func (r *Registry) RouteID(pk int64) (string, bool) { return r.snap().routes.id(pk) }
func (r *Registry) TripPK(tripID string) (int64, bool) { return r.snap().trips.pk(tripID) }
func (r *Registry) TripID(pk int64) (string, bool) { return r.snap().trips.id(pk) }
func (r *Registry) ShapePK(shapeID string) (int64, bool) { return r.snap().shapes.pk(shapeID) }
func (r *Registry) ShapeID(pk int64) (string, bool) { return r.snap().shapes.id(pk) }

// StopName is strict: an unknown stop is transit.ErrNotFound and a call before
// Load is ErrNotLoaded.
func (r *Registry) StopName(stopID string) (string, error) {
	s := r.state.Load()
	if s == nil {
		return "", ErrNotLoaded
	}
	name, ok := s.stopNames[stopID]
	if !ok {
		return "", fmt.Errorf("%w: stop %q", transit.ErrNotFound, stopID)
	}
	return name, nil
}

func (r *Registry) IsValidStop(stopID string) bool {
	_, ok := r.StopPK(stopID)
	return ok
}

// AllStopIDs returns every loaded stop id in sorted order.
func (r *Registry) AllStopIDs() []string {
	s := r.snap()
	ids := make([]string, 0, len(s.stops.toPK))
	for id := range s.stops.toPK {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Transfers returns every stored transfer by external stop id. The list is read
// once and reused.
func (r *Registry) Transfers(ctx context.Context) ([]transit.Transfer, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}

	r.transfersMu.Lock()
	defer r.transfersMu.Unlock()

	if !r.transfersOK {
		rows, err := r.store.ListTransfers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read transfers: %w", err)
		}
		transfers := make([]transit.Transfer, 0, len(rows))
		for _, row := range rows {
			from, fromOK := r.StopID(row.FromStopID)
			to, toOK := r.StopID(row.ToStopID)
			if !fromOK || !toOK {
				logging.LogWarning(r.logger, "skipping transfer with unknown stop",
					slog.Int64("from_stop_pk", row.FromStopID),
					slog.Int64("to_stop_pk", row.ToStopID))
				continue
			}
			transfers = append(transfers, transit.Transfer{
				FromStopID: from,
				ToStopID:   to,
				Minutes:    int(row.Minutes),
				IsWalking:  row.IsWalking,
			})
		}
		r.transfers = transfers
		r.transfersOK = true
	}

	out := make([]transit.Transfer, len(r.transfers))
	copy(out, r.transfers)
	return out, nil
}

// DepartureTime is the scheduled departure of tripID from stopID on the
// clock's current date, one day later when the stored time is flagged as
// next-day. Unknown ids and a trip that never visits the stop are
// transit.ErrNotFound.
func (r *Registry) DepartureTime(ctx context.Context, stopID, tripID string) (time.Time, error) {
	if err := r.Load(ctx); err != nil {
		return time.Time{}, err
	}

	stopPK, ok := r.StopPK(stopID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: stop %q", transit.ErrNotFound, stopID)
	}
	tripPK, ok := r.TripPK(tripID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: trip %q", transit.ErrNotFound, tripID)
	}

	entry, err := r.store.GetStopTimeForTripAndStop(ctx, tripPK, stopPK)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: trip %q does not stop at %q", transit.ErrNotFound, tripID, stopID)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read stop time: %w", err)
	}

	return r.onServiceDay(entry.DepTime, entry.DepIsNextDay)
}

func (r *Registry) onServiceDay(clockTime string, nextDay bool) (time.Time, error) {
	tod, err := time.Parse(time.TimeOnly, clockTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored time %q is malformed: %w", clockTime, err)
	}
	now := r.clock.Now()
	t := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, now.Location())
	if nextDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// ScheduledTrips returns the stored trips running under class.
func (r *Registry) ScheduledTrips(ctx context.Context, class transit.ServiceClass) ([]gtfsdb.ScheduledTrip, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	trips, err := r.store.ListScheduledTripsByServiceClass(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s trips: %w", class, err)
	}
	return trips, nil
}

// TripStopSequence returns a scheduled trip's stop visits ordered by sequence.
func (r *Registry) TripStopSequence(ctx context.Context, tripID string) ([]gtfsdb.StopTimeEntry, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	tripPK, ok := r.TripPK(tripID)
	if !ok {
		return nil, fmt.Errorf("%w: trip %q", transit.ErrNotFound, tripID)
	}
	entries, err := r.store.ListStopTimesForTrip(ctx, tripPK)
	if err != nil {
		return nil, fmt.Errorf("failed to read stop times for trip %q: %w", tripID, err)
	}
	return entries, nil
}

// NearbyStop is a stop with its distance from a search point.
type NearbyStop struct {
	Stop           gtfsdb.Stop
	DistanceMeters float64
}

// StopsNear returns the stops within radiusMeters of (lat, lon), closest first.
func (r *Registry) StopsNear(lat, lon, radiusMeters float64) []NearbyStop {
	s := r.snap()
	if s.stopIndex == nil {
		return nil
	}

	bounds := utils.CalculateBounds(lat, lon, radiusMeters)
	var results []NearbyStop
	s.stopIndex.Search(
		[2]float64{bounds.MinLat, bounds.MinLon},
		[2]float64{bounds.MaxLat, bounds.MaxLon},
		func(_, _ [2]float64, data interface{}) bool {
			stop, ok := data.(gtfsdb.Stop)
			if !ok {
				return true
			}
			if d := utils.Distance(lat, lon, stop.Lat, stop.Lon); d <= radiusMeters {
				results = append(results, NearbyStop{Stop: stop, DistanceMeters: d})
			}
			return true
		},
	)

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		return results[i].Stop.ExternalID < results[j].Stop.ExternalID
	})
	return results
}

// Stops returns every loaded stop in key order.
func (r *Registry) Stops() []gtfsdb.Stop {
	rows := r.snap().stopRows
	out := make([]gtfsdb.Stop, len(rows))
	copy(out, rows)
	return out
}

// Routes returns every loaded route in key order.
func (r *Registry) Routes() []gtfsdb.Route {
	rows := r.snap().routeRows
	out := make([]gtfsdb.Route, len(rows))
	copy(out, rows)
	return out
}

// Stop returns the stored row for stopID.
func (r *Registry) Stop(stopID string) (gtfsdb.Stop, bool) {
	pk, ok := r.StopPK(stopID)
	if !ok {
		return gtfsdb.Stop{}, false
	}
	rows := r.snap().stopRows
	i := sort.Search(len(rows), func(i int) bool { return rows[i].ID >= pk })
	if i == len(rows) || rows[i].ID != pk {
		return gtfsdb.Stop{}, false
	}
	return rows[i], true
}

// ShapePolyline encodes a shape's points as a Google encoded polyline.
func (r *Registry) ShapePolyline(ctx context.Context, shapeID string) (string, error) {
	if err := r.Load(ctx); err != nil {
		return "", err
	}
	pk, ok := r.ShapePK(shapeID)
	if !ok {
		return "", fmt.Errorf("%w: shape %q", transit.ErrNotFound, shapeID)
	}
	points, err := r.store.ListShapePoints(ctx, pk)
	if err != nil {
		return "", fmt.Errorf("failed to read shape %q: %w", shapeID, err)
	}

	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords)), nil
}
