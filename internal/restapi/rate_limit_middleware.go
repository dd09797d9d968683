package restapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"subwaychallenge.org/pathfinder/internal/models"
)

const (
	limiterIdleTimeout = 10 * time.Minute
	cleanupInterval    = 5 * time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware provides per-API-key rate limiting
type RateLimitMiddleware struct {
	mu        sync.Mutex
	limiters  map[string]*keyLimiter
	rateLimit rate.Limit
	burstSize int

	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimitMiddleware allows ratePerSecond requests per interval for each
// API key, with bursts of the same size. A negative rate disables limiting and
// zero rejects every request.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration) *RateLimitMiddleware {
	var limit rate.Limit
	switch {
	case ratePerSecond < 0:
		limit = rate.Inf
	case ratePerSecond == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(ratePerSecond))
	}

	rl := &RateLimitMiddleware{
		limiters:  make(map[string]*keyLimiter),
		rateLimit: limit,
		burstSize: ratePerSecond,
		done:      make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[apiKey]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
		rl.limiters[apiKey] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.URL.Query().Get("key")
			if apiKey == "" {
				apiKey = "__no_key__"
			}

			if !rl.getLimiter(apiKey).Allow() {
				rl.sendRateLimitExceeded(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retryAfter := time.Second
	if rl.rateLimit == 0 {
		retryAfter = time.Hour
	} else if rl.rateLimit != rate.Inf && float64(rl.rateLimit) < 1 {
		retryAfter = time.Duration(float64(time.Second) / float64(rl.rateLimit))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(models.ResponseModel{
		Code:        http.StatusTooManyRequests,
		CurrentTime: time.Now().UnixMilli(),
		Text:        "rate limit exceeded",
		Version:     2,
	})
}

// cleanup drops limiters for keys that have gone quiet.
func (rl *RateLimitMiddleware) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if now.Sub(entry.lastSeen) > limiterIdleTimeout {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}
