package models

import "subwaychallenge.org/pathfinder/gtfsdb"

type Stop struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
}

func NewStop(s gtfsdb.Stop) Stop {
	return Stop{ID: s.ExternalID, Name: s.Name, Lat: s.Lat, Lon: s.Lon}
}

// NewNearbyStop is a stop annotated with its distance from the search point.
func NewNearbyStop(s gtfsdb.Stop, distanceMeters float64) Stop {
	m := NewStop(s)
	m.DistanceMeters = &distanceMeters
	return m
}
