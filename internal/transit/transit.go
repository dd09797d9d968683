// Package transit holds the domain values shared by the normalizer, the
// identifier registry and the journey resolvers.
package transit

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the segment and journey layers. Callers match them
// with errors.Is to choose a response.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrEmptyResult = errors.New("empty result")
)

// ServiceClass is the service-calendar classification of a scheduled trip.
type ServiceClass int64

const (
	Weekday  ServiceClass = 0
	Saturday ServiceClass = 1
	Sunday   ServiceClass = 2
)

func (s ServiceClass) String() string {
	switch s {
	case Weekday:
		return "Weekday"
	case Saturday:
		return "Saturday"
	case Sunday:
		return "Sunday"
	default:
		return fmt.Sprintf("ServiceClass(%d)", int64(s))
	}
}

// ServiceClassFor returns the classification running on t's weekday.
func ServiceClassFor(t time.Time) ServiceClass {
	switch t.Weekday() {
	case time.Saturday:
		return Saturday
	case time.Sunday:
		return Sunday
	default:
		return Weekday
	}
}

// Transfer is a directed connection between two stops, by external id.
type Transfer struct {
	FromStopID string
	ToStopID   string
	Minutes    int
	IsWalking  bool
}

func (t Transfer) String() string {
	return fmt.Sprintf("Transfer: %s -> %s (%d min)", t.FromStopID, t.ToStopID, t.Minutes)
}

// LiveStopTimeUpdate is one stop on a trip observed on the live feed. StopID is
// the raw feed identifier, usually carrying a direction suffix.
type LiveStopTimeUpdate struct {
	StopID    string
	Arrival   *time.Time
	Departure *time.Time
}

// LiveTrip is a trip observed on the live feed.
type LiveTrip struct {
	RouteID         string
	TripID          string
	ShapeID         string
	StopTimeUpdates []LiveStopTimeUpdate
}
