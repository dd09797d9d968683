package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/models"
)

// tripsTodayHandler lists the trips running today, optionally narrowed to
// one route with ?route=.
func (api *RestAPI) tripsTodayHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.Registry.Load(r.Context()); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	catalog, err := api.Resolver.TripsToday(r.Context())
	if err != nil {
		api.sendError(w, r, err)
		return
	}

	route := r.URL.Query().Get("route")
	trips := make([]models.Trip, 0, catalog.Len())
	for _, t := range catalog.Trips() {
		if route != "" && t.RouteID != route {
			continue
		}
		trips = append(trips, models.NewTrip(t))
	}
	api.sendResponse(w, r, models.NewListResponseWithClock(trips, false, api.Clock))
}
