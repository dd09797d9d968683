package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subwaychallenge.org/pathfinder/internal/logging"
)

// replaceOrder lists tables children first so deletes never orphan a reference.
var replaceOrder = []string{
	"transfers",
	"stop_time_entries",
	"scheduled_trips",
	"shape_points",
	"shapes",
	"routes",
	"stops",
}

// ReplaceDataset swaps the stored dataset for ds in a single transaction.
func (c *Client) ReplaceDataset(ctx context.Context, ds *Dataset) error {
	start := time.Now()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "replace_dataset")

	for _, table := range replaceOrder {
		// table comes from a fixed list, never from input
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	batch := c.config.GetBulkInsertBatchSize()

	if err := bulkInsert(ctx, tx, "stops",
		[]string{"id", "external_stop_id", "name", "lat", "lon"}, ds.Stops, batch,
		func(s Stop) []interface{} { return []interface{}{s.ID, s.ExternalID, s.Name, s.Lat, s.Lon} }); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "routes",
		[]string{"id", "external_route_id", "name"}, ds.Routes, batch,
		func(r Route) []interface{} { return []interface{}{r.ID, r.ExternalID, r.Name} }); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "shapes",
		[]string{"id", "external_shape_id"}, ds.Shapes, batch,
		func(s Shape) []interface{} { return []interface{}{s.ID, s.ExternalID} }); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "shape_points",
		[]string{"sequence", "shape_id", "lat", "lon"}, ds.ShapePoints, batch,
		func(p ShapePoint) []interface{} { return []interface{}{p.Sequence, p.ShapeID, p.Lat, p.Lon} }); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "scheduled_trips",
		[]string{"id", "external_trip_id", "service_class", "route_id", "shape_id"}, ds.Trips, batch,
		func(t ScheduledTrip) []interface{} {
			return []interface{}{t.ID, t.ExternalID, int64(t.ServiceClass), t.RouteID, t.ShapeID}
		}); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "stop_time_entries",
		[]string{"trip_id", "stop_id", "dep_time", "dep_is_next_day", "arr_time", "arr_is_next_day", "sequence"}, ds.StopTimes, batch,
		func(st StopTimeEntry) []interface{} {
			return []interface{}{st.TripID, st.StopID, st.DepTime, boolToInt(st.DepIsNextDay), st.ArrTime, boolToInt(st.ArrIsNextDay), st.Sequence}
		}); err != nil {
		return err
	}
	if err := bulkInsert(ctx, tx, "transfers",
		[]string{"from_stop_id", "to_stop_id", "minutes", "is_walking"}, ds.Transfers, batch,
		func(t Transfer) []interface{} {
			return []interface{}{t.FromStopID, t.ToStopID, t.Minutes, boolToInt(t.IsWalking)}
		}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	logging.LogOperation(c.logger, "dataset_replaced",
		slog.Int("stops", len(ds.Stops)),
		slog.Int("routes", len(ds.Routes)),
		slog.Int("shapes", len(ds.Shapes)),
		slog.Int("trips", len(ds.Trips)),
		slog.Int("stop_times", len(ds.StopTimes)),
		slog.Int("transfers", len(ds.Transfers)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// bulkInsert writes rows with multi-row INSERT statements of at most batchSize
// rows, shrinking the batch when it would exceed SQLite's bind variable limit.
func bulkInsert[T any](ctx context.Context, tx *sql.Tx, table string, columns []string, rows []T, batchSize int, values func(T) []interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	if limit := maxBindVariables / len(columns); batchSize > limit {
		batchSize = limit
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	prefix := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES "

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var query strings.Builder
		query.WriteString(prefix)
		args := make([]interface{}, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString(placeholder)
			args = append(args, values(row)...)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("failed to insert %s batch at row %d: %w", table, start, err)
		}
	}
	return nil
}
