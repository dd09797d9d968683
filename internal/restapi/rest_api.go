package restapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"subwaychallenge.org/pathfinder/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter  *RateLimitMiddleware
	compress     func(http.Handler) http.Handler
	validate     *validator.Validate
	shutdownOnce sync.Once
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
		compress:    NewCompressionMiddleware(compressionConfigFor(app.Config)),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Shutdown stops background work owned by the API. It is idempotent.
func (api *RestAPI) Shutdown() {
	api.shutdownOnce.Do(func() {
		if api.rateLimiter != nil {
			api.rateLimiter.Stop()
		}
	})
}
