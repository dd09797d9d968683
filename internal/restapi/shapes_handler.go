package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/models"
)

func (api *RestAPI) shapeHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	points, err := api.Registry.ShapePolyline(r.Context(), id)
	if err != nil {
		api.sendError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponseWithClock(models.Shape{ID: id, Points: points}, api.Clock))
}
