package journey

import (
	"context"
	"fmt"
	"time"

	"subwaychallenge.org/pathfinder/internal/transit"
)

// Segment is one boarding-to-alighting span on a trip. A Segment that exists
// is valid: both stops are on the trip and start does not come after end.
type Segment struct {
	start   string
	end     string
	trip    Trip
	visited []string
	reg     Registry
}

// NewSegment resolves the inclusive stop range from start to end on trip.
// A stop missing from the trip is transit.ErrNotFound; a malformed live stop
// id or an end before the start is transit.ErrValidation. The registry is
// loaded first if needed.
func NewSegment(ctx context.Context, reg Registry, start, end string, trip Trip) (*Segment, error) {
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}

	var stops []string
	var err error
	switch trip.Kind {
	case Realtime:
		stops, err = liveStopSequence(trip)
	default:
		stops, err = scheduledStopSequence(ctx, reg, start, end, trip)
	}
	if err != nil {
		return nil, err
	}

	startIdx, endIdx := indexOf(stops, start), indexOf(stops, end)
	if startIdx < 0 {
		return nil, fmt.Errorf("%w: stop %q is not on trip %q", transit.ErrNotFound, start, trip.TripID)
	}
	if endIdx < 0 {
		return nil, fmt.Errorf("%w: stop %q is not on trip %q", transit.ErrNotFound, end, trip.TripID)
	}
	if startIdx > endIdx {
		return nil, fmt.Errorf("%w: stop %q comes after %q on trip %q", transit.ErrValidation, start, end, trip.TripID)
	}

	visited := make([]string, endIdx-startIdx+1)
	copy(visited, stops[startIdx:endIdx+1])

	return &Segment{start: start, end: end, trip: trip, visited: visited, reg: reg}, nil
}

func liveStopSequence(trip Trip) ([]string, error) {
	stops := make([]string, 0, len(trip.StopTimeUpdates))
	for _, u := range trip.StopTimeUpdates {
		id, err := transit.FormatStationID(u.StopID)
		if err != nil {
			return nil, fmt.Errorf("trip %q: %w", trip.TripID, err)
		}
		stops = append(stops, id)
	}
	return stops, nil
}

func scheduledStopSequence(ctx context.Context, reg Registry, start, end string, trip Trip) ([]string, error) {
	if _, ok := reg.StopPK(start); !ok {
		return nil, fmt.Errorf("%w: unknown stop %q", transit.ErrNotFound, start)
	}
	if _, ok := reg.StopPK(end); !ok {
		return nil, fmt.Errorf("%w: unknown stop %q", transit.ErrNotFound, end)
	}

	entries, err := reg.TripStopSequence(ctx, trip.TripID)
	if err != nil {
		return nil, err
	}

	stops := make([]string, 0, len(entries))
	for _, e := range entries {
		id, ok := reg.StopID(e.StopID)
		if !ok {
			return nil, fmt.Errorf("%w: trip %q visits unknown stop key %d", transit.ErrNotFound, trip.TripID, e.StopID)
		}
		stops = append(stops, id)
	}
	return stops, nil
}

func indexOf(stops []string, id string) int {
	for i, s := range stops {
		if s == id {
			return i
		}
	}
	return -1
}

func (s *Segment) Start() string { return s.start }
func (s *Segment) End() string   { return s.end }
func (s *Segment) Trip() Trip    { return s.trip }

func (s *Segment) IsRealtime() bool { return s.trip.IsRealtime() }

// VisitedStops returns the stop ids from start to end inclusive.
func (s *Segment) VisitedStops() []string {
	out := make([]string, len(s.visited))
	copy(out, s.visited)
	return out
}

func (s *Segment) StartStopName() (string, error) {
	return s.reg.StopName(s.start)
}

func (s *Segment) EndStopName() (string, error) {
	return s.reg.StopName(s.end)
}

func (s *Segment) VisitedStopNames() ([]string, error) {
	names := make([]string, 0, len(s.visited))
	for _, id := range s.visited {
		name, err := s.reg.StopName(id)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// BoardingTime is the scheduled departure from the start stop. Live trips are
// timed from the schedule too.
func (s *Segment) BoardingTime(ctx context.Context) (time.Time, error) {
	return s.reg.DepartureTime(ctx, s.start, s.trip.TripID)
}

// AlightingTime is the scheduled departure from the end stop.
func (s *Segment) AlightingTime(ctx context.Context) (time.Time, error) {
	return s.reg.DepartureTime(ctx, s.end, s.trip.TripID)
}
