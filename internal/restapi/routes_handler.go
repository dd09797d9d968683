package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/models"
)

// routesHandler lists the retained routes with their long names.
func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.Registry.Load(r.Context()); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewListResponseWithClock(models.NewRoutes(api.Registry.Routes()), false, api.Clock))
}
