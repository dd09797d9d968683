package restapi

import (
	"net/http"

	"subwaychallenge.org/pathfinder/internal/models"
	"subwaychallenge.org/pathfinder/internal/utils"
)

// stopsHandler lists every stop, or the stops within radius of lat/lon when
// a location is given.
func (api *RestAPI) stopsHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.Registry.Load(r.Context()); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	params := r.URL.Query()
	if !params.Has("lat") && !params.Has("lon") {
		rows := api.Registry.Stops()
		stops := make([]models.Stop, 0, len(rows))
		for _, s := range rows {
			stops = append(stops, models.NewStop(s))
		}
		api.sendResponse(w, r, models.NewListResponseWithClock(stops, false, api.Clock))
		return
	}

	fieldErrors := make(map[string][]string)
	for _, key := range []string{"lat", "lon"} {
		if !params.Has(key) {
			fieldErrors[key] = append(fieldErrors[key], "lat and lon must be given together")
		}
	}
	lat, fieldErrors := utils.ParseFloatParam(params, "lat", fieldErrors)
	lon, fieldErrors := utils.ParseFloatParam(params, "lon", fieldErrors)
	radius := float64(models.DefaultSearchRadiusInMeters)
	if params.Has("radius") {
		radius, fieldErrors = utils.ParseFloatParam(params, "radius", fieldErrors)
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if fieldErrors := utils.ValidateLocation(lat, lon, radius); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	nearby := api.Registry.StopsNear(lat, lon, radius)
	limitExceeded := len(nearby) > models.DefaultMaxCountForStops
	if limitExceeded {
		nearby = nearby[:models.DefaultMaxCountForStops]
	}

	stops := make([]models.Stop, 0, len(nearby))
	for _, n := range nearby {
		stops = append(stops, models.NewNearbyStop(n.Stop, n.DistanceMeters))
	}
	api.sendResponse(w, r, models.NewListResponseWithClock(stops, limitExceeded, api.Clock))
}

func (api *RestAPI) stopHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.Registry.Load(r.Context()); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	stop, ok := api.Registry.Stop(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, r)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponseWithClock(models.NewStop(stop), api.Clock))
}
