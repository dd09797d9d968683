package gtfsdb

import (
	"context"
	"database/sql"

	"subwaychallenge.org/pathfinder/internal/transit"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries is the read side of the store.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listStops = `
SELECT id, external_stop_id, name, lat, lon
FROM stops
ORDER BY id
`

func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listStops)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Stop
	for rows.Next() {
		var i Stop
		if err := rows.Scan(&i.ID, &i.ExternalID, &i.Name, &i.Lat, &i.Lon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRoutes = `
SELECT id, external_route_id, name
FROM routes
ORDER BY id
`

func (q *Queries) ListRoutes(ctx context.Context) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx, listRoutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []Route
	for rows.Next() {
		var i Route
		if err := rows.Scan(&i.ID, &i.ExternalID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listShapes = `
SELECT id, external_shape_id
FROM shapes
ORDER BY id
`

func (q *Queries) ListShapes(ctx context.Context) ([]Shape, error) {
	rows, err := q.db.QueryContext(ctx, listShapes)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []Shape
	for rows.Next() {
		var i Shape
		if err := rows.Scan(&i.ID, &i.ExternalID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listScheduledTrips = `
SELECT id, external_trip_id, service_class, route_id, shape_id
FROM scheduled_trips
ORDER BY id
`

func (q *Queries) ListScheduledTrips(ctx context.Context) ([]ScheduledTrip, error) {
	return q.scanScheduledTrips(ctx, listScheduledTrips)
}

const listScheduledTripsByServiceClass = `
SELECT id, external_trip_id, service_class, route_id, shape_id
FROM scheduled_trips
WHERE service_class = ?
ORDER BY id
`

// ListScheduledTripsByServiceClass returns the trips running under class.
func (q *Queries) ListScheduledTripsByServiceClass(ctx context.Context, class transit.ServiceClass) ([]ScheduledTrip, error) {
	return q.scanScheduledTrips(ctx, listScheduledTripsByServiceClass, int64(class))
}

func (q *Queries) scanScheduledTrips(ctx context.Context, query string, args ...interface{}) ([]ScheduledTrip, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []ScheduledTrip
	for rows.Next() {
		var i ScheduledTrip
		var class int64
		if err := rows.Scan(&i.ID, &i.ExternalID, &class, &i.RouteID, &i.ShapeID); err != nil {
			return nil, err
		}
		i.ServiceClass = transit.ServiceClass(class)
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransfers = `
SELECT from_stop_id, to_stop_id, minutes, is_walking
FROM transfers
ORDER BY rowid
`

func (q *Queries) ListTransfers(ctx context.Context) ([]Transfer, error) {
	rows, err := q.db.QueryContext(ctx, listTransfers)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []Transfer
	for rows.Next() {
		var i Transfer
		var walking int64
		if err := rows.Scan(&i.FromStopID, &i.ToStopID, &i.Minutes, &walking); err != nil {
			return nil, err
		}
		i.IsWalking = walking != 0
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const stopTimeColumns = `trip_id, stop_id, dep_time, dep_is_next_day, arr_time, arr_is_next_day, sequence`

const listStopTimesForTrip = `
SELECT ` + stopTimeColumns + `
FROM stop_time_entries
WHERE trip_id = ?
ORDER BY sequence
`

// ListStopTimesForTrip returns a trip's stop visits ordered by sequence.
func (q *Queries) ListStopTimesForTrip(ctx context.Context, tripID int64) ([]StopTimeEntry, error) {
	rows, err := q.db.QueryContext(ctx, listStopTimesForTrip, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []StopTimeEntry
	for rows.Next() {
		i, err := scanStopTime(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getStopTimeForTripAndStop = `
SELECT ` + stopTimeColumns + `
FROM stop_time_entries
WHERE trip_id = ? AND stop_id = ?
ORDER BY sequence
LIMIT 1
`

// GetStopTimeForTripAndStop returns the first visit of stopID on tripID, or
// sql.ErrNoRows.
func (q *Queries) GetStopTimeForTripAndStop(ctx context.Context, tripID, stopID int64) (StopTimeEntry, error) {
	row := q.db.QueryRowContext(ctx, getStopTimeForTripAndStop, tripID, stopID)
	return scanStopTime(row)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStopTime(s scanner) (StopTimeEntry, error) {
	var i StopTimeEntry
	var depNext, arrNext int64
	err := s.Scan(&i.TripID, &i.StopID, &i.DepTime, &depNext, &i.ArrTime, &arrNext, &i.Sequence)
	i.DepIsNextDay = depNext != 0
	i.ArrIsNextDay = arrNext != 0
	return i, err
}

const listShapePoints = `
SELECT sequence, shape_id, lat, lon
FROM shape_points
WHERE shape_id = ?
ORDER BY sequence
`

// ListShapePoints returns a shape's vertices in path order.
func (q *Queries) ListShapePoints(ctx context.Context, shapeID int64) ([]ShapePoint, error) {
	rows, err := q.db.QueryContext(ctx, listShapePoints, shapeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	var items []ShapePoint
	for rows.Next() {
		var i ShapePoint
		if err := rows.Scan(&i.Sequence, &i.ShapeID, &i.Lat, &i.Lon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
