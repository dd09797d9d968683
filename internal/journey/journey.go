package journey

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/transit"
)

// leg is a segment together with the transfer taken to reach it, if any.
type leg struct {
	transfer *transit.Transfer
	segment  *Segment
}

// Journey is an ordered run of segments with optional transfers between them.
type Journey struct {
	legs []leg
}

func NewJourney(segments ...*Segment) *Journey {
	j := &Journey{}
	for _, s := range segments {
		j.AddSegment(s)
	}
	return j
}

func (j *Journey) AddSegment(s *Segment) {
	j.legs = append(j.legs, leg{segment: s})
}

// AddTransferAndSegment records the transfer taken before boarding s.
func (j *Journey) AddTransferAndSegment(t transit.Transfer, s *Segment) {
	j.legs = append(j.legs, leg{transfer: &t, segment: s})
}

func (j *Journey) Segments() []*Segment {
	out := make([]*Segment, 0, len(j.legs))
	for _, l := range j.legs {
		out = append(out, l.segment)
	}
	return out
}

// Transfers returns the recorded transfers in journey order.
func (j *Journey) Transfers() []transit.Transfer {
	var out []transit.Transfer
	for _, l := range j.legs {
		if l.transfer != nil {
			out = append(out, *l.transfer)
		}
	}
	return out
}

// TransferBefore returns the transfer taken before the i-th segment.
func (j *Journey) TransferBefore(i int) (transit.Transfer, bool) {
	if i < 0 || i >= len(j.legs) || j.legs[i].transfer == nil {
		return transit.Transfer{}, false
	}
	return *j.legs[i].transfer, true
}

func (j *Journey) Len() int { return len(j.legs) }

// TotalTravelTime is the whole minutes from boarding the first segment to
// alighting the last, rounded down.
func (j *Journey) TotalTravelTime(ctx context.Context) (int, error) {
	if len(j.legs) == 0 {
		return 0, fmt.Errorf("%w: journey has no segments", transit.ErrEmptyResult)
	}

	board, err := j.legs[0].segment.BoardingTime(ctx)
	if err != nil {
		return 0, err
	}
	alight, err := j.legs[len(j.legs)-1].segment.AlightingTime(ctx)
	if err != nil {
		return 0, err
	}

	return int(math.Floor(alight.Sub(board).Minutes())), nil
}

// StopValidator reports whether a stop id is known.
type StopValidator interface {
	IsValidStop(stopID string) bool
}

// FilterKnownStops returns a journey without the segments whose start or end
// stop is unknown. A transfer survives only when the segment after it does,
// and the result never starts with a transfer.
func (j *Journey) FilterKnownStops(v StopValidator, logger *slog.Logger) (*Journey, error) {
	logger = logging.OrDefault(logger)

	out := &Journey{}
	for _, l := range j.legs {
		s := l.segment
		if !v.IsValidStop(s.Start()) || !v.IsValidStop(s.End()) {
			logging.LogWarning(logger, "dropping segment with unknown stop",
				slog.String("trip_id", s.Trip().TripID),
				slog.String("start", s.Start()),
				slog.String("end", s.End()))
			continue
		}
		if len(out.legs) == 0 {
			l.transfer = nil
		}
		out.legs = append(out.legs, l)
	}

	if len(out.legs) == 0 {
		return nil, fmt.Errorf("%w: no segment has known stops", transit.ErrEmptyResult)
	}
	return out, nil
}
