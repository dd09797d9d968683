// Package static reads a static GTFS zip and normalizes it into the relational
// dataset loaded into gtfsdb.
package static

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/OneBusAway/go-gtfs"
	"subwaychallenge.org/pathfinder/internal/logging"
)

// Record is one row of a feed table keyed by header name. A column missing from
// the file is absent from the map.
type Record map[string]string

// RawFeed holds the tables the normalizer consumes.
type RawFeed struct {
	Stops     []Record
	Routes    []Record
	Shapes    []Record
	Trips     []Record
	StopTimes []Record
	Transfers []Record
}

type tableSpec struct {
	name     string
	required bool
	dest     func(*RawFeed) *[]Record
}

var tables = []tableSpec{
	{"stops.txt", true, func(f *RawFeed) *[]Record { return &f.Stops }},
	{"routes.txt", true, func(f *RawFeed) *[]Record { return &f.Routes }},
	{"shapes.txt", false, func(f *RawFeed) *[]Record { return &f.Shapes }},
	{"trips.txt", true, func(f *RawFeed) *[]Record { return &f.Trips }},
	{"stop_times.txt", true, func(f *RawFeed) *[]Record { return &f.StopTimes }},
	{"transfers.txt", false, func(f *RawFeed) *[]Record { return &f.Transfers }},
}

// ReadFeed opens a static GTFS zip and reads the tables the normalizer needs.
func ReadFeed(data []byte) (*RawFeed, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening GTFS zip: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		// Some publishers nest the tables one directory deep.
		name := f.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		files[name] = f
	}

	feed := &RawFeed{}
	for _, table := range tables {
		f, ok := files[table.name]
		if !ok {
			if table.required {
				return nil, fmt.Errorf("GTFS feed is missing required table %s", table.name)
			}
			continue
		}
		records, err := readTable(f)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", table.name, err)
		}
		*table.dest(feed) = records
	}
	return feed, nil
}

func readTable(f *zip.File) ([]Record, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(rc,
		slog.Default().With(slog.String("component", "static_reader")),
		"zip_entry")

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchFeed reads a static feed from a local path or downloads it from an
// http(s) URL, sending the auth header when both parts are set.
func FetchFeed(ctx context.Context, source, authHeaderKey, authHeaderValue string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	if authHeaderKey != "" && authHeaderValue != "" {
		req.Header.Set(authHeaderKey, authHeaderValue)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading GTFS data: unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	return b, nil
}

// Summary is the entity count of a feed as seen by a full GTFS parser.
type Summary struct {
	Agencies  int
	Routes    int
	Stops     int
	Trips     int
	Services  int
	Shapes    int
	Transfers int
}

// Summarize parses the feed with the go-gtfs static parser. A feed that parser
// rejects is usually malformed in ways the normalizer would silently drop.
func Summarize(data []byte) (Summary, error) {
	staticData, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return Summary{}, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return Summary{
		Agencies:  len(staticData.Agencies),
		Routes:    len(staticData.Routes),
		Stops:     len(staticData.Stops),
		Trips:     len(staticData.Trips),
		Services:  len(staticData.Services),
		Shapes:    len(staticData.Shapes),
		Transfers: len(staticData.Transfers),
	}, nil
}

// LogValue renders the summary as a slog group.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("agencies", s.Agencies),
		slog.Int("routes", s.Routes),
		slog.Int("stops", s.Stops),
		slog.Int("trips", s.Trips),
		slog.Int("services", s.Services),
		slog.Int("shapes", s.Shapes),
		slog.Int("transfers", s.Transfers),
	)
}
