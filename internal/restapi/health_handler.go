package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/models"
)

// healthHandler reports ready once the identifier registry has loaded. It
// attempts the load itself so a cold instance becomes ready on the first health check.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := api.Registry.Load(r.Context()); err != nil {
		logging.LogError(api.requestLogger(r), "health check failed", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	data := map[string]interface{}{
		"status":         status,
		"registryLoaded": api.Registry.Loaded(),
	}
	api.sendResponse(w, r, models.NewResponseWithClock(code, data, http.StatusText(code), api.Clock))
}
