package static

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/transit"
)

// DefaultRetainMarker is compared against location_type and route_type, and
// stands in for either attribute when the column is absent.
const DefaultRetainMarker = "1"

// Options selects which stops and routes survive normalization.
type Options struct {
	StopRetainMarker  string
	RouteRetainMarker string
}

func DefaultOptions() Options {
	return Options{StopRetainMarker: DefaultRetainMarker, RouteRetainMarker: DefaultRetainMarker}
}

// Normalizer turns raw feed tables into a dataset with synthesized surrogate keys.
// It holds no state between runs.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

func NewNormalizer(opts Options, logger *slog.Logger) *Normalizer {
	if opts.StopRetainMarker == "" {
		opts.StopRetainMarker = DefaultRetainMarker
	}
	if opts.RouteRetainMarker == "" {
		opts.RouteRetainMarker = DefaultRetainMarker
	}
	return &Normalizer{
		opts:   opts,
		logger: logging.OrDefault(logger).With(slog.String("component", "normalizer")),
	}
}

// dropCounts tracks rows discarded by each table's retention rule.
type dropCounts struct {
	stops, routes, trips, stopTimes, transfers int
}

// Normalize runs the full transform. Keys are assigned sequentially from 1 in
// input order within each table.
func (n *Normalizer) Normalize(feed *RawFeed) (*gtfsdb.Dataset, error) {
	ds := &gtfsdb.Dataset{}
	var dropped dropCounts

	stopKeys := make(map[string]int64)
	for _, rec := range feed.Stops {
		if valueOr(rec, "location_type", DefaultRetainMarker) != n.opts.StopRetainMarker {
			dropped.stops++
			continue
		}
		id := rec["stop_id"]
		if _, dup := stopKeys[id]; dup {
			dropped.stops++
			continue
		}
		lat, lon, err := parseCoordinates(rec["stop_lat"], rec["stop_lon"])
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", id, err)
		}
		pk := int64(len(ds.Stops) + 1)
		ds.Stops = append(ds.Stops, gtfsdb.Stop{ID: pk, ExternalID: id, Name: rec["stop_name"], Lat: lat, Lon: lon})
		stopKeys[id] = pk
	}

	routeKeys := make(map[string]int64)
	for _, rec := range feed.Routes {
		if valueOr(rec, "route_type", DefaultRetainMarker) != n.opts.RouteRetainMarker {
			dropped.routes++
			continue
		}
		id := rec["route_id"]
		if _, dup := routeKeys[id]; dup {
			dropped.routes++
			continue
		}
		pk := int64(len(ds.Routes) + 1)
		ds.Routes = append(ds.Routes, gtfsdb.Route{ID: pk, ExternalID: id, Name: rec["route_long_name"]})
		routeKeys[id] = pk
	}

	shapeKeys := make(map[string]int64)
	for _, rec := range feed.Shapes {
		id := rec["shape_id"]
		if _, seen := shapeKeys[id]; seen {
			continue
		}
		pk := int64(len(ds.Shapes) + 1)
		ds.Shapes = append(ds.Shapes, gtfsdb.Shape{ID: pk, ExternalID: id})
		shapeKeys[id] = pk
	}
	for _, rec := range feed.Shapes {
		id := rec["shape_id"]
		seq, err := strconv.ParseInt(strings.TrimSpace(rec["shape_pt_sequence"]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shape %q: invalid shape_pt_sequence %q", id, rec["shape_pt_sequence"])
		}
		lat, lon, err := parseCoordinates(rec["shape_pt_lat"], rec["shape_pt_lon"])
		if err != nil {
			return nil, fmt.Errorf("shape %q point %d: %w", id, seq, err)
		}
		ds.ShapePoints = append(ds.ShapePoints, gtfsdb.ShapePoint{Sequence: seq, ShapeID: shapeKeys[id], Lat: lat, Lon: lon})
	}

	tripKeys := make(map[string]int64)
	for _, rec := range feed.Trips {
		routePK, routeOK := routeKeys[rec["route_id"]]
		shapePK, shapeOK := shapeKeys[rec["shape_id"]]
		id := rec["trip_id"]
		_, dup := tripKeys[id]
		if !routeOK || !shapeOK || dup {
			dropped.trips++
			continue
		}
		pk := int64(len(ds.Trips) + 1)
		ds.Trips = append(ds.Trips, gtfsdb.ScheduledTrip{
			ID:           pk,
			ExternalID:   id,
			ServiceClass: ClassifyService(rec["service_id"]),
			RouteID:      routePK,
			ShapeID:      shapePK,
		})
		tripKeys[id] = pk
	}

	for _, rec := range feed.StopTimes {
		tripPK, tripOK := tripKeys[rec["trip_id"]]
		stopPK, stopOK := stopKeys[transit.StationPrefix(rec["stop_id"])]
		if !tripOK || !stopOK {
			dropped.stopTimes++
			continue
		}
		entry, err := stopTimeEntry(rec, tripPK, stopPK)
		if err != nil {
			return nil, fmt.Errorf("trip %q: %w", rec["trip_id"], err)
		}
		ds.StopTimes = append(ds.StopTimes, entry)
	}

	for _, rec := range feed.Transfers {
		from, fromOK := stopKeys[rec["from_stop_id"]]
		to, toOK := stopKeys[rec["to_stop_id"]]
		if !fromOK || !toOK || from == to {
			dropped.transfers++
			continue
		}
		minutes := transferMinutes(rec)
		ds.Transfers = append(ds.Transfers,
			gtfsdb.Transfer{FromStopID: from, ToStopID: to, Minutes: minutes},
			gtfsdb.Transfer{FromStopID: to, ToStopID: from, Minutes: minutes},
		)
	}

	logging.LogOperation(n.logger, "feed_normalized",
		slog.Int("stops", len(ds.Stops)),
		slog.Int("routes", len(ds.Routes)),
		slog.Int("shapes", len(ds.Shapes)),
		slog.Int("trips", len(ds.Trips)),
		slog.Int("stop_times", len(ds.StopTimes)),
		slog.Int("transfers", len(ds.Transfers)),
		slog.Int("dropped_stops", dropped.stops),
		slog.Int("dropped_routes", dropped.routes),
		slog.Int("dropped_trips", dropped.trips),
		slog.Int("dropped_stop_times", dropped.stopTimes),
		slog.Int("dropped_transfers", dropped.transfers))

	return ds, nil
}

func stopTimeEntry(rec Record, tripPK, stopPK int64) (gtfsdb.StopTimeEntry, error) {
	arr, arrNext, err := ParseFeedTime(rec["arrival_time"])
	if err != nil {
		return gtfsdb.StopTimeEntry{}, fmt.Errorf("arrival_time: %w", err)
	}
	dep, depNext, err := ParseFeedTime(rec["departure_time"])
	if err != nil {
		return gtfsdb.StopTimeEntry{}, fmt.Errorf("departure_time: %w", err)
	}
	seq, err := strconv.ParseInt(strings.TrimSpace(rec["stop_sequence"]), 10, 64)
	if err != nil {
		return gtfsdb.StopTimeEntry{}, fmt.Errorf("invalid stop_sequence %q", rec["stop_sequence"])
	}
	return gtfsdb.StopTimeEntry{
		TripID:       tripPK,
		StopID:       stopPK,
		DepTime:      dep,
		DepIsNextDay: depNext,
		ArrTime:      arr,
		ArrIsNextDay: arrNext,
		Sequence:     seq,
	}, nil
}

// ParseFeedTime normalizes a feed H:MM:SS time. Hours 24 through 47 wrap to the
// next day and set the returned flag. An empty value is midnight.
func ParseFeedTime(s string) (string, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "00:00:00", false, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", false, fmt.Errorf("invalid time %q", s)
	}
	var hms [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return "", false, fmt.Errorf("invalid time %q", s)
		}
		hms[i] = v
	}

	nextDay := false
	if hms[0] >= 24 {
		hms[0] -= 24
		nextDay = true
	}
	if hms[0] >= 24 {
		return "", false, fmt.Errorf("time %q is more than one day past service start", s)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hms[0], hms[1], hms[2]), nextDay, nil
}

// ClassifyService maps a raw service_id onto a service class by case-insensitive
// substring. Unrecognized ids are Weekday.
func ClassifyService(serviceID string) transit.ServiceClass {
	s := strings.ToLower(serviceID)
	switch {
	case strings.Contains(s, "weekday"):
		return transit.Weekday
	case strings.Contains(s, "saturday"):
		return transit.Saturday
	case strings.Contains(s, "sunday"):
		return transit.Sunday
	default:
		return transit.Weekday
	}
}

// transferMinutes is min_transfer_time in whole minutes. Absent, empty, negative
// or malformed values are 0.
func transferMinutes(rec Record) int64 {
	seconds, err := strconv.ParseInt(strings.TrimSpace(rec["min_transfer_time"]), 10, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return seconds / 60
}

func valueOr(rec Record, key, fallback string) string {
	if v, ok := rec[key]; ok {
		return v
	}
	return fallback
}

func parseCoordinates(latStr, lonStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", lonStr)
	}
	return lat, lon, nil
}
