package restapi

import (
	"net/http"
	"time"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/utils"
)

// staticDataMaxAge is how long clients may cache responses derived only from
// the imported static feed.
const staticDataMaxAge = 5 * time.Minute

// rateLimitAndValidateAPIKey combines API key validation, rate limiting and compression
func rateLimitAndValidateAPIKey(api *RestAPI, finalHandler http.HandlerFunc) http.Handler {
	var compressed http.Handler = finalHandler
	if api.compress != nil {
		compressed = api.compress(finalHandler)
	}

	var limited http.Handler = compressed
	if api.rateLimiter != nil {
		limited = api.rateLimiter.Handler()(compressed)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// withID rejects malformed {id} path values before the handler runs.
func withID(api *RestAPI, handler http.HandlerFunc) http.Handler {
	return rateLimitAndValidateAPIKey(api, func(w http.ResponseWriter, r *http.Request) {
		if err := utils.ValidateID(r.PathValue("id")); err != nil {
			api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
			return
		}
		handler(w, r)
	})
}

func cached(maxAge time.Duration, h http.Handler) http.Handler {
	return CacheControl(maxAge)(h)
}

// SetRoutes registers all API endpoints on mux
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", api.Metrics.Handler())
	}

	mux.Handle("GET /api/stops", cached(staticDataMaxAge, rateLimitAndValidateAPIKey(api, api.stopsHandler)))
	mux.Handle("GET /api/stops/{id}", cached(staticDataMaxAge, withID(api, api.stopHandler)))
	mux.Handle("GET /api/routes", cached(staticDataMaxAge, rateLimitAndValidateAPIKey(api, api.routesHandler)))
	mux.Handle("GET /api/transfers", cached(staticDataMaxAge, rateLimitAndValidateAPIKey(api, api.transfersHandler)))
	mux.Handle("GET /api/shapes/{id}", cached(staticDataMaxAge, withID(api, api.shapeHandler)))

	mux.Handle("GET /api/trips/today", cached(0, rateLimitAndValidateAPIKey(api, api.tripsTodayHandler)))
	mux.Handle("POST /api/journeys", cached(0, rateLimitAndValidateAPIKey(api, api.journeysHandler)))
}

// SetupAPIRoutes returns the routed API wrapped in the global middleware
// chain: request id, then request logging, then security headers.
func (api *RestAPI) SetupAPIRoutes() http.Handler {
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	var handler http.Handler = mux
	handler = api.WithSecurityHeaders(handler)
	handler = NewRequestLoggingMiddleware(logging.OrDefault(api.Logger), api.Metrics)(handler)
	return RequestIDMiddleware(handler)
}
