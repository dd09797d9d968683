// Package realtime fetches GTFS-realtime trip updates per route marker.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/bluele/gcache"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/metrics"
	"subwaychallenge.org/pathfinder/internal/transit"
)

// DefaultMarkers holds one route per rail trunk, which together cover every
// NYCT subway feed the resolver needs.
const DefaultMarkers = "ABGJNL1"

// feedPaths maps a route id to the feed that carries it.
var feedPaths = map[string]string{
	"1": "nyct%2Fgtfs", "2": "nyct%2Fgtfs", "3": "nyct%2Fgtfs", "4": "nyct%2Fgtfs",
	"5": "nyct%2Fgtfs", "6": "nyct%2Fgtfs", "7": "nyct%2Fgtfs", "GS": "nyct%2Fgtfs", "S": "nyct%2Fgtfs",
	"A": "nyct%2Fgtfs-ace", "C": "nyct%2Fgtfs-ace", "E": "nyct%2Fgtfs-ace", "H": "nyct%2Fgtfs-ace", "FS": "nyct%2Fgtfs-ace",
	"B": "nyct%2Fgtfs-bdfm", "D": "nyct%2Fgtfs-bdfm", "F": "nyct%2Fgtfs-bdfm", "M": "nyct%2Fgtfs-bdfm", "FX": "nyct%2Fgtfs-bdfm",
	"G": "nyct%2Fgtfs-g",
	"J": "nyct%2Fgtfs-jz", "Z": "nyct%2Fgtfs-jz",
	"L": "nyct%2Fgtfs-l",
	"N": "nyct%2Fgtfs-nqrw", "Q": "nyct%2Fgtfs-nqrw", "R": "nyct%2Fgtfs-nqrw", "W": "nyct%2Fgtfs-nqrw",
	"SI": "nyct%2Fgtfs-si", "SIR": "nyct%2Fgtfs-si",
}

// Markers splits a marker string such as DefaultMarkers into route ids.
func Markers(s string) []string {
	markers := make([]string, 0, len(s))
	for _, r := range s {
		markers = append(markers, string(r))
	}
	return markers
}

type Config struct {
	BaseURL         string
	AuthHeaderKey   string
	AuthHeaderValue string
	Timeout         time.Duration // per attempt
	MaxAttempts     int
	RetryBackoff    time.Duration // multiplied by the attempt number
	CacheTTL        time.Duration // zero disables caching
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/",
		Timeout:      15 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 500 * time.Millisecond,
		CacheTTL:     30 * time.Second,
	}
}

type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	feeds      gcache.Cache // feed URL -> []transit.LiveTrip
}

// NewClient builds a feed client. m may be nil.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{},
		logger:     logging.OrDefault(logger).With(slog.String("component", "realtime_client")),
		metrics:    m,
	}
	if config.CacheTTL > 0 {
		c.feeds = gcache.New(len(feedPaths)).LRU().Expiration(config.CacheTTL).Build()
	}
	return c
}

// FeedURLForMarker returns the feed URL carrying the marker's route.
func (c *Client) FeedURLForMarker(marker string) (string, error) {
	path, ok := feedPaths[marker]
	if !ok {
		return "", fmt.Errorf("no realtime feed for route marker %q", marker)
	}
	return c.config.BaseURL + path, nil
}

// TripsForMarker fetches the marker's feed and returns its trips in feed order.
// Markers sharing a feed share its cached copy until CacheTTL elapses.
func (c *Client) TripsForMarker(ctx context.Context, marker string) ([]transit.LiveTrip, error) {
	url, err := c.FeedURLForMarker(marker)
	if err != nil {
		return nil, err
	}

	if c.feeds != nil {
		if cached, err := c.feeds.Get(url); err == nil {
			c.recordOutcome(marker, "cache_hit")
			return cached.([]transit.LiveTrip), nil
		}
	}

	start := time.Now()
	data, err := c.fetchWithRetry(ctx, marker, url)
	if c.metrics != nil {
		c.metrics.FeedFetchDuration.WithLabelValues(marker).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.recordOutcome(marker, "error")
		return nil, err
	}

	feed, err := gtfs.ParseRealtime(data, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		c.recordOutcome(marker, "parse_error")
		return nil, fmt.Errorf("failed to parse realtime feed for %q: %w", marker, err)
	}

	trips := make([]transit.LiveTrip, 0, len(feed.Trips))
	for _, trip := range feed.Trips {
		trips = append(trips, toLiveTrip(trip))
	}

	if c.feeds != nil {
		_ = c.feeds.Set(url, trips)
	}
	c.recordOutcome(marker, "success")
	if c.metrics != nil {
		c.metrics.FeedTrips.WithLabelValues(marker).Set(float64(len(trips)))
	}
	logging.LogOperation(c.logger, "realtime_feed_fetched",
		slog.String("marker", marker),
		slog.Int("trips", len(trips)),
		slog.Duration("duration", time.Since(start)))
	return trips, nil
}

func (c *Client) recordOutcome(marker, outcome string) {
	if c.metrics != nil {
		c.metrics.FeedFetches.WithLabelValues(marker, outcome).Inc()
	}
}

// errPermanent marks a failure that retrying cannot fix.
var errPermanent = errors.New("permanent feed error")

func (c *Client) fetchWithRetry(ctx context.Context, marker, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		data, err := c.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, errPermanent) || ctx.Err() != nil || attempt == c.config.MaxAttempts {
			break
		}

		logging.LogWarning(c.logger, "realtime fetch failed, retrying",
			slog.String("marker", marker),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.RetryBackoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("failed to fetch realtime feed for %q: %w", marker, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errPermanent, err)
	}
	if c.config.AuthHeaderKey != "" && c.config.AuthHeaderValue != "" {
		req.Header.Set(c.config.AuthHeaderKey, c.config.AuthHeaderValue)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: feed returned status %d", errPermanent, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func toLiveTrip(trip gtfs.Trip) transit.LiveTrip {
	live := transit.LiveTrip{
		RouteID: trip.ID.RouteID,
		TripID:  trip.ID.ID,
		ShapeID: ShapeIDFromTripID(trip.ID.ID),
	}
	for _, stu := range trip.StopTimeUpdates {
		update := transit.LiveStopTimeUpdate{}
		if stu.StopID != nil {
			update.StopID = *stu.StopID
		}
		if stu.Arrival != nil && stu.Arrival.Time != nil {
			t := *stu.Arrival.Time
			update.Arrival = &t
		}
		if stu.Departure != nil && stu.Departure.Time != nil {
			t := *stu.Departure.Time
			update.Departure = &t
		}
		live.StopTimeUpdates = append(live.StopTimeUpdates, update)
	}
	return live
}

// ShapeIDFromTripID returns the NYCT shape id embedded after the last
// underscore of a trip id, e.g. "1..S03R" from "138600_1..S03R".
func ShapeIDFromTripID(tripID string) string {
	i := strings.LastIndex(tripID, "_")
	if i < 0 {
		return ""
	}
	return tripID[i+1:]
}
