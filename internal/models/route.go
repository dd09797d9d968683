package models

import "subwaychallenge.org/pathfinder/gtfsdb"

type Route struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewRoutes(rows []gtfsdb.Route) []Route {
	out := make([]Route, 0, len(rows))
	for _, r := range rows {
		out = append(out, Route{ID: r.ExternalID, Name: r.Name})
	}
	return out
}
