package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/models"
)

func (api *RestAPI) transfersHandler(w http.ResponseWriter, r *http.Request) {
	transfers, err := api.Registry.Transfers(r.Context())
	if err != nil {
		api.sendError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewListResponseWithClock(models.NewTransfers(transfers), false, api.Clock))
}
