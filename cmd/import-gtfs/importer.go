package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subwaychallenge.org/pathfinder/gtfsdb"
	"subwaychallenge.org/pathfinder/internal/appconf"
	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/static"
)

// ImportConfig says where the feed comes from and where the store lives.
type ImportConfig struct {
	Source          string
	AuthHeaderName  string
	AuthHeaderValue string
	DataPath        string
	Env             appconf.Environment
	Normalizer      static.Options
}

// Import replaces the store's contents with the normalized feed and returns
// the resulting row count per table.
func Import(ctx context.Context, cfg ImportConfig, logger *slog.Logger) (map[string]int, error) {
	logger = logging.OrDefault(logger).With(slog.String("component", "importer"))
	start := time.Now()

	data, err := static.FetchFeed(ctx, cfg.Source, cfg.AuthHeaderName, cfg.AuthHeaderValue)
	if err != nil {
		return nil, err
	}

	// The summary is informational; feeds missing optional files still import.
	if summary, err := static.Summarize(data); err != nil {
		logging.LogWarning(logger, "could not summarize feed", slog.String("error", err.Error()))
	} else {
		logger.Info("feed_summary", slog.Any("summary", summary))
	}

	raw, err := static.ReadFeed(data)
	if err != nil {
		return nil, err
	}

	ds, err := static.NewNormalizer(cfg.Normalizer, logger).Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize feed: %w", err)
	}

	store, err := gtfsdb.NewClient(gtfsdb.NewConfig(cfg.DataPath, cfg.Env))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer logging.SafeCloseWithLogging(store, logger, "gtfs_store")

	if err := store.ReplaceDataset(ctx, ds); err != nil {
		return nil, err
	}

	counts, err := store.TableCounts(ctx)
	if err != nil {
		return nil, err
	}

	logging.LogOperation(logger, "import_complete",
		slog.String("data_path", cfg.DataPath),
		slog.Duration("duration", time.Since(start)))
	return counts, nil
}
