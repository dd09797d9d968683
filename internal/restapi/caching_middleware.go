package restapi

import (
	"fmt"
	"net/http"
	"time"
)

const noStore = "no-cache, no-store, must-revalidate"

// cacheControlWriter picks the Cache-Control header once the status is known.
// Only successful responses are cacheable.
type cacheControlWriter struct {
	http.ResponseWriter
	maxAge      time.Duration
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if w.maxAge > 0 && code < http.StatusBadRequest {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(w.maxAge.Seconds())))
		} else {
			w.Header().Set("Cache-Control", noStore)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// CacheControl marks successful responses cacheable for maxAge. A zero maxAge
// and every error response get no-store.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, maxAge: maxAge}, r)
		})
	}
}
