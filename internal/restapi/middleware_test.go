package restapi

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/transit"
)

func TestCompressionMiddleware(t *testing.T) {
	large := strings.Repeat(`{"test": "data"}`, 1000)
	handler := NewCompressionMiddleware(compressionConfigFor(appconf.Config{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(large))
	}))

	t.Run("compresses when gzip accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, large, string(body))
	})

	t.Run("plain when gzip not accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, large, rec.Body.String())
	})
}

func TestCompressionConfigFor(t *testing.T) {
	assert.Equal(t, appconf.DefaultGzipMinSize, compressionConfigFor(appconf.Config{}).MinSize)
	assert.Equal(t, 64, compressionConfigFor(appconf.Config{GzipMinSize: 64}).MinSize)
	assert.Equal(t, -1, compressionConfigFor(appconf.Config{GzipMinSize: -1}).MinSize)
}

func TestCompression_FollowsGzipMinSize(t *testing.T) {
	tests := []struct {
		name     string
		minSize  int
		encoding string
	}{
		{"small threshold compresses the stop list", 1, "gzip"},
		{"default threshold leaves the small stop list alone", 0, ""},
		{"negative threshold disables compression", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := createTestApi(t, withGzipMinSize(tt.minSize))
			server := httptest.NewServer(api.SetupAPIRoutes())
			defer server.Close()

			req, err := http.NewRequest(http.MethodGet, server.URL+"/api/stops?key="+testKey, nil)
			require.NoError(t, err)
			req.Header.Set("Accept-Encoding", "gzip")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.encoding, resp.Header.Get("Content-Encoding"))

			var body io.Reader = resp.Body
			if tt.encoding == "gzip" {
				zr, err := gzip.NewReader(resp.Body)
				require.NoError(t, err)
				body = zr
			}
			raw, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Contains(t, string(raw), "Van Cortlandt Park-242 St")
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.SetupAPIRoutes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/journeys", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimitMiddleware(t *testing.T) {
	api := createTestApi(t, withRateLimit(1))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, _ := get(t, api, "/api/transfers?key="+testKey)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_PerKey(t *testing.T) {
	rl := NewRateLimitMiddleware(1, time.Hour)
	defer rl.Stop()

	handler := rl.Handler()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	call := func(key string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?key="+key, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))
}

func TestRateLimitMiddleware_ZeroRejectsEverything(t *testing.T) {
	rl := NewRateLimitMiddleware(0, time.Hour)
	defer rl.Stop()

	rec := httptest.NewRecorder()
	rl.Handler()(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?key=a", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
}

func TestShutdownStopsRateLimiterOnce(t *testing.T) {
	api := createTestApi(t, withRateLimit(5))

	done := make(chan struct{})
	go func() {
		api.Shutdown()
		api.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown blocked")
	}

	// Stop after Shutdown must not panic on the closed cleanup channel.
	assert.NotPanics(t, api.rateLimiter.Stop)
}

func TestRequestMetrics(t *testing.T) {
	api := createTestApi(t)

	get(t, api, "/api/transfers?key="+testKey)
	get(t, api, "/api/transfers?key=wrong")

	assert.Equal(t, 1.0, testutil.ToFloat64(api.Metrics.HTTPRequests.WithLabelValues("GET /api/transfers", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(api.Metrics.HTTPRequests.WithLabelValues("GET /api/transfers", "401")))

	server := httptest.NewServer(api.SetupAPIRoutes())
	defer server.Close()
	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pathfinder_http_requests_total")
	assert.Contains(t, string(body), "pathfinder_registry_entities")
}

func TestSendError(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: stop", transit.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: order", transit.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: nothing left", transit.ErrEmptyResult), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.sendError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
