package models

import "subwaychallenge.org/pathfinder/internal/journey"

type Trip struct {
	ID           string `json:"id"`
	RouteID      string `json:"routeId"`
	ShapeID      string `json:"shapeId"`
	Kind         string `json:"kind"`
	ServiceClass string `json:"serviceClass,omitempty"`
	StopCount    int    `json:"stopCount,omitempty"`
}

func NewTrip(t journey.Trip) Trip {
	m := Trip{ID: t.TripID, RouteID: t.RouteID, ShapeID: t.ShapeID, Kind: t.Kind.String()}
	if t.IsRealtime() {
		m.StopCount = len(t.StopTimeUpdates)
	} else {
		m.ServiceClass = t.ServiceClass.String()
	}
	return m
}
