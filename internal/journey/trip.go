// Package journey resolves today's trips and turns a rider's boardings into
// validated, timed segments.
package journey

import (
	"time"

	"subwaychallenge.org/pathfinder/internal/transit"
)

// Kind tells where a Trip came from.
type Kind int

const (
	Scheduled Kind = iota
	Realtime
)

func (k Kind) String() string {
	if k == Realtime {
		return "realtime"
	}
	return "scheduled"
}

// Trip is a scheduled or live trip. ServiceClass is meaningful only for
// Scheduled trips and StopTimeUpdates only for Realtime ones.
type Trip struct {
	Kind    Kind
	RouteID string
	TripID  string
	ShapeID string

	ServiceClass    transit.ServiceClass
	StopTimeUpdates []transit.LiveStopTimeUpdate
}

func NewScheduledTrip(routeID, tripID, shapeID string, class transit.ServiceClass) Trip {
	return Trip{Kind: Scheduled, RouteID: routeID, TripID: tripID, ShapeID: shapeID, ServiceClass: class}
}

func NewRealtimeTrip(live transit.LiveTrip) Trip {
	return Trip{
		Kind:            Realtime,
		RouteID:         live.RouteID,
		TripID:          live.TripID,
		ShapeID:         live.ShapeID,
		StopTimeUpdates: live.StopTimeUpdates,
	}
}

func (t Trip) IsRealtime() bool {
	return t.Kind == Realtime
}

// RunningToday is always true for a live trip. A scheduled trip runs when its
// service class matches the day of now.
func (t Trip) RunningToday(now time.Time) bool {
	switch t.Kind {
	case Realtime:
		return true
	default:
		return t.ServiceClass == TodaysServiceClass(now)
	}
}

// TodaysServiceClass is the service class running on now's weekday.
func TodaysServiceClass(now time.Time) transit.ServiceClass {
	return transit.ServiceClassFor(now)
}
