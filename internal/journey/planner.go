package journey

import (
	"context"
	"fmt"
	"log/slog"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/transit"
)

// Leg is a rider-reported boarding: the trip taken and where they got on
// and off.
type Leg struct {
	TripID      string `json:"tripId" validate:"required"`
	StartStopID string `json:"startStopId" validate:"required"`
	EndStopID   string `json:"endStopId" validate:"required"`
}

// Planner assembles journeys from legs against today's trips.
type Planner struct {
	reg      Registry
	resolver *Resolver
	logger   *slog.Logger
}

func NewPlanner(reg Registry, resolver *Resolver, logger *slog.Logger) *Planner {
	return &Planner{
		reg:      reg,
		resolver: resolver,
		logger:   logging.OrDefault(logger).With(slog.String("component", "journey_planner")),
	}
}

// Plan builds a journey from legs in order. Consecutive legs that meet at
// different stops need a known transfer between those stops. Segments with
// unknown stops are dropped from the result.
func (p *Planner) Plan(ctx context.Context, legs []Leg) (*Journey, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: at least one leg is required", transit.ErrValidation)
	}

	catalog, err := p.resolver.TripsToday(ctx)
	if err != nil {
		return nil, err
	}

	var transfers map[[2]string]transit.Transfer
	j := &Journey{}
	for i, l := range legs {
		trip, ok := catalog.Lookup(l.TripID)
		if !ok {
			return nil, fmt.Errorf("%w: trip %q is not running today", transit.ErrNotFound, l.TripID)
		}

		seg, err := NewSegment(ctx, p.reg, l.StartStopID, l.EndStopID, trip)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}

		if i == 0 || legs[i-1].EndStopID == l.StartStopID {
			j.AddSegment(seg)
			continue
		}

		if transfers == nil {
			if transfers, err = p.transferIndex(ctx); err != nil {
				return nil, err
			}
		}
		t, ok := transfers[[2]string{legs[i-1].EndStopID, l.StartStopID}]
		if !ok {
			return nil, fmt.Errorf("%w: leg %d: no transfer from %q to %q",
				transit.ErrValidation, i+1, legs[i-1].EndStopID, l.StartStopID)
		}
		j.AddTransferAndSegment(t, seg)
	}

	return j.FilterKnownStops(p.reg, p.logger)
}

func (p *Planner) transferIndex(ctx context.Context) (map[[2]string]transit.Transfer, error) {
	all, err := p.reg.Transfers(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[[2]string]transit.Transfer, len(all))
	for _, t := range all {
		key := [2]string{t.FromStopID, t.ToStopID}
		if _, seen := idx[key]; !seen {
			idx[key] = t
		}
	}
	return idx, nil
}
