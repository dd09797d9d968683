package models

// Segment times are Unix milliseconds, like CurrentTime.
type Segment struct {
	TripID           string   `json:"tripId"`
	RouteID          string   `json:"routeId"`
	Realtime         bool     `json:"realtime"`
	StartStopID      string   `json:"startStopId"`
	StartStopName    string   `json:"startStopName"`
	EndStopID        string   `json:"endStopId"`
	EndStopName      string   `json:"endStopName"`
	VisitedStopIDs   []string `json:"visitedStopIds"`
	VisitedStopNames []string `json:"visitedStopNames"`
	BoardingTime     int64    `json:"boardingTime"`
	AlightingTime    int64    `json:"alightingTime"`
}

type Journey struct {
	Segments           []Segment  `json:"segments"`
	Transfers          []Transfer `json:"transfers"`
	TotalTravelMinutes int        `json:"totalTravelMinutes"`
}

type Shape struct {
	ID     string `json:"id"`
	Points string `json:"points"`
}
