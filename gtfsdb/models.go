package gtfsdb

import "subwaychallenge.org/pathfinder/internal/transit"

// Stop is a retained parent station.
type Stop struct {
	ID         int64
	ExternalID string
	Name       string
	Lat        float64
	Lon        float64
}

type Route struct {
	ID         int64
	ExternalID string
	Name       string
}

type Shape struct {
	ID         int64
	ExternalID string
}

// ShapePoint is one vertex of a shape. Sequence is unique within its shape.
type ShapePoint struct {
	Sequence int64
	ShapeID  int64
	Lat      float64
	Lon      float64
}

type ScheduledTrip struct {
	ID           int64
	ExternalID   string
	ServiceClass transit.ServiceClass
	RouteID      int64
	ShapeID      int64
}

// StopTimeEntry is one stop visit of a scheduled trip. Times are HH:MM:SS with
// hours in [0,23]; the next-day flags mark times that were past midnight in the
// raw feed.
type StopTimeEntry struct {
	TripID       int64
	StopID       int64
	DepTime      string
	DepIsNextDay bool
	ArrTime      string
	ArrIsNextDay bool
	Sequence     int64
}

// Transfer is a directed connection between two stops, by surrogate key.
type Transfer struct {
	FromStopID int64
	ToStopID   int64
	Minutes    int64
	IsWalking  bool
}

// Dataset is the full output of one normalizer run.
type Dataset struct {
	Stops       []Stop
	Routes      []Route
	Shapes      []Shape
	ShapePoints []ShapePoint
	Trips       []ScheduledTrip
	StopTimes   []StopTimeEntry
	Transfers   []Transfer
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
