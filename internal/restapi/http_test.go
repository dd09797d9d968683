package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/app"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/clock"
	"subwaychallenge.org/pathfinder/internal/journey"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/metrics"
	"subwaychallenge.org/pathfinder/internal/models"
	"subwaychallenge.org/pathfinder/internal/registry"
	"subwaychallenge.org/pathfinder/internal/transit"
)

const (
	testKey      = "TEST"
	localTrip    = "AFA23GEN-1038-Weekday-00_048000_1..N03R"
	crosstown    = "AFA23GEN-7038-Weekday-00_053700_7..N97R"
	saturdayTrip = "AFA23GEN-1087-Saturday-00_048000_1..N03R"
)

func testDataset() *gtfsdb.Dataset {
	return &gtfsdb.Dataset{
		Stops: []gtfsdb.Stop{
			{ID: 1, ExternalID: "101", Name: "Van Cortlandt Park-242 St", Lat: 40.889248, Lon: -73.898583},
			{ID: 2, ExternalID: "103", Name: "238 St", Lat: 40.884667, Lon: -73.90087},
			{ID: 3, ExternalID: "106", Name: "Marble Hill-225 St", Lat: 40.874561, Lon: -73.909831},
			{ID: 4, ExternalID: "127", Name: "Times Sq-42 St", Lat: 40.75529, Lon: -73.987495},
			{ID: 5, ExternalID: "725", Name: "Times Sq-42 St", Lat: 40.755477, Lon: -73.987691},
		},
		Routes: []gtfsdb.Route{
			{ID: 1, ExternalID: "1", Name: "Broadway - 7 Avenue Local"},
			{ID: 2, ExternalID: "7", Name: "Flushing Local"},
		},
		Shapes: []gtfsdb.Shape{{ID: 1, ExternalID: "1..N03R"}, {ID: 2, ExternalID: "7..N97R"}},
		ShapePoints: []gtfsdb.ShapePoint{
			{Sequence: 0, ShapeID: 1, Lat: 38.5, Lon: -120.2},
			{Sequence: 1, ShapeID: 1, Lat: 40.7, Lon: -120.95},
			{Sequence: 2, ShapeID: 1, Lat: 43.252, Lon: -126.453},
		},
		Trips: []gtfsdb.ScheduledTrip{
			{ID: 1, ExternalID: localTrip, ServiceClass: transit.Weekday, RouteID: 1, ShapeID: 1},
			{ID: 2, ExternalID: crosstown, ServiceClass: transit.Weekday, RouteID: 2, ShapeID: 2},
			{ID: 3, ExternalID: saturdayTrip, ServiceClass: transit.Saturday, RouteID: 1, ShapeID: 1},
		},
		StopTimes: []gtfsdb.StopTimeEntry{
			{TripID: 1, StopID: 1, DepTime: "08:00:00", ArrTime: "08:00:00", Sequence: 1},
			{TripID: 1, StopID: 2, DepTime: "08:10:00", ArrTime: "08:09:30", Sequence: 2},
			{TripID: 1, StopID: 3, DepTime: "08:47:00", ArrTime: "08:46:30", Sequence: 3},
			{TripID: 2, StopID: 5, DepTime: "08:55:00", ArrTime: "08:55:00", Sequence: 1},
			{TripID: 2, StopID: 4, DepTime: "09:10:59", ArrTime: "09:10:00", Sequence: 2},
			{TripID: 3, StopID: 1, DepTime: "08:00:00", ArrTime: "08:00:00", Sequence: 1},
		},
		Transfers: []gtfsdb.Transfer{
			{FromStopID: 3, ToStopID: 5, Minutes: 3, IsWalking: true},
			{FromStopID: 5, ToStopID: 3, Minutes: 3, IsWalking: true},
		},
	}
}

// staticFeed serves fixed live trips; every other marker fails.
type staticFeed map[string][]transit.LiveTrip

func (f staticFeed) TripsForMarker(_ context.Context, marker string) ([]transit.LiveTrip, error) {
	trips, ok := f[marker]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return trips, nil
}

type testOptions struct {
	rateLimit   int
	gzipMinSize int
	feed        journey.LiveFeed
}

// createTestApi wires an Application over an in-memory store holding
// testDataset, with the clock at Monday 2025-03-10 07:00 in New York.
func createTestApi(t *testing.T, opts ...func(*testOptions)) *RestAPI {
	t.Helper()
	o := testOptions{rateLimit: 1000}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clk := clock.NewMockClock(time.Date(2025, 3, 10, 7, 0, 0, 0, loc))

	store, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test))
	require.NoError(t, err)
	require.NoError(t, store.ReplaceDataset(context.Background(), testDataset()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := metrics.New(false)
	reg := registry.New(store.Queries, clk, logger, registry.WithMetrics(m))
	resolver := journey.NewResolver(reg, o.feed, clk, []string{"1"}, logger)

	application := &app.Application{
		Config: appconf.Config{
			Env:         appconf.Test,
			ApiKeys:     []string{testKey},
			RateLimit:   o.rateLimit,
			GzipMinSize: o.gzipMinSize,
		},
		Logger:   logger,
		Clock:    clk,
		Metrics:  m,
		Store:    store,
		Registry: reg,
		Resolver: resolver,
		Planner:  journey.NewPlanner(reg, resolver, logger),
	}

	api := NewRestAPI(application)
	t.Cleanup(func() {
		api.Shutdown()
		_ = application.Close()
	})
	return api
}

func withRateLimit(n int) func(*testOptions) {
	return func(o *testOptions) { o.rateLimit = n }
}

func withGzipMinSize(n int) func(*testOptions) {
	return func(o *testOptions) { o.gzipMinSize = n }
}

func withFeed(f journey.LiveFeed) func(*testOptions) {
	return func(o *testOptions) { o.feed = f }
}

// doRequest sends a request through the full middleware chain and decodes
// the response body.
func doRequest(t *testing.T, api *RestAPI, method, target string, body []byte) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := httptest.NewServer(api.SetupAPIRoutes())
	defer server.Close()

	req, err := http.NewRequest(method, server.URL+target, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func get(t *testing.T, api *RestAPI, target string) (*http.Response, models.ResponseModel) {
	return doRequest(t, api, http.MethodGet, target, nil)
}

func listOf(t *testing.T, model models.ResponseModel) []interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	list, ok := data["list"].([]interface{})
	require.True(t, ok, "list is %T", data["list"])
	return list
}

func entryOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", model.Data)
	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok, "entry is %T", data["entry"])
	return entry
}

func collectIDs(list []interface{}, key string) []string {
	ids := make([]string, 0, len(list))
	for _, item := range list {
		obj, _ := item.(map[string]interface{})
		id, _ := obj[key].(string)
		ids = append(ids, id)
	}
	return ids
}
