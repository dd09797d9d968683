package gtfsdb

import (
	"context"
	"fmt"
)

// TableCounts returns the row count of every dataset table.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(replaceOrder))

	for _, table := range replaceOrder {
		var query string

		// This prevents SQL injection by ensuring the query string is always a constant.
		switch table {
		case "stops":
			query = "SELECT COUNT(*) FROM stops"
		case "routes":
			query = "SELECT COUNT(*) FROM routes"
		case "shapes":
			query = "SELECT COUNT(*) FROM shapes"
		case "shape_points":
			query = "SELECT COUNT(*) FROM shape_points"
		case "scheduled_trips":
			query = "SELECT COUNT(*) FROM scheduled_trips"
		case "stop_time_entries":
			query = "SELECT COUNT(*) FROM stop_time_entries"
		case "transfers":
			query = "SELECT COUNT(*) FROM transfers"
		default:
			continue
		}

		var count int
		if err := c.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}

	return counts, nil
}
