package gtfsdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"subwaychallenge.org/pathfinder/internal/appconf"
)

func newTestClient(t *testing.T, driver string) *Client {
	t.Helper()
	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test, Driver: driver})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_TestEnvRequiresMemory(t *testing.T) {
	client, err := NewClient(Config{DBPath: "/tmp/pathfinder_test.db", Env: appconf.Test})
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "test database must use in-memory storage")
}

func TestNewClient_UnknownDriver(t *testing.T) {
	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test, Driver: "postgres"})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewClient_MemoryUsesSingleConnection(t *testing.T) {
	client := newTestClient(t, "")
	assert.Equal(t, 1, client.DB.Stats().MaxOpenConnections)
	assert.NotNil(t, client.Queries)
}

func TestNewClient_FileDatabase(t *testing.T) {
	path := t.TempDir() + "/gtfs.db"
	client, err := NewClient(NewConfig(path, appconf.Development))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.ReplaceDataset(context.Background(), fixtureDataset()))
	counts, err := client.TableCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts["stops"])
}

func TestNewClient_Pragmas(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver+" file", func(t *testing.T) {
			config := NewConfig(t.TempDir()+"/gtfs.db", appconf.Development)
			config.Driver = driver
			client, err := NewClient(config)
			require.NoError(t, err)
			defer func() { _ = client.Close() }()

			var mode string
			require.NoError(t, client.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
			assert.Equal(t, "wal", mode)

			var fk, timeout int
			require.NoError(t, client.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
			assert.Equal(t, 1, fk)
			require.NoError(t, client.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
			assert.Equal(t, 5000, timeout)
		})

		t.Run(driver+" memory", func(t *testing.T) {
			client := newTestClient(t, driver)

			var fk int
			require.NoError(t, client.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
			assert.Equal(t, 1, fk)

			err := client.ReplaceDataset(ctx, &Dataset{
				Stops:     []Stop{{ID: 1, ExternalID: "101", Name: "A"}},
				Transfers: []Transfer{{FromStopID: 1, ToStopID: 99, Minutes: 2}},
			})
			assert.Error(t, err, "transfer to a missing stop violates the foreign key")
		})
	}
}

func TestGetBulkInsertBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBulkInsertBatchSize, Config{}.GetBulkInsertBatchSize())
	assert.Equal(t, DefaultBulkInsertBatchSize, Config{BulkInsertBatchSize: -5}.GetBulkInsertBatchSize())
	assert.Equal(t, 50, Config{BulkInsertBatchSize: 50}.GetBulkInsertBatchSize())
}

func TestReplaceDataset_BothDrivers(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			client := newTestClient(t, driver)
			ctx := context.Background()

			require.NoError(t, client.ReplaceDataset(ctx, fixtureDataset()))

			counts, err := client.TableCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{
				"stops":             4,
				"routes":            1,
				"shapes":            1,
				"shape_points":      3,
				"scheduled_trips":   2,
				"stop_time_entries": 5,
				"transfers":         2,
			}, counts)
		})
	}
}

func TestReplaceDataset_ReplacesPreviousRows(t *testing.T) {
	client := newTestClient(t, "")
	ctx := context.Background()

	require.NoError(t, client.ReplaceDataset(ctx, fixtureDataset()))
	require.NoError(t, client.ReplaceDataset(ctx, &Dataset{
		Stops: []Stop{{ID: 1, ExternalID: "999", Name: "Only Stop"}},
	}))

	stops, err := client.Queries.ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "999", stops[0].ExternalID)

	trips, err := client.Queries.ListScheduledTrips(ctx)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestReplaceDataset_SmallBatches(t *testing.T) {
	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test, BulkInsertBatchSize: 2})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	ctx := context.Background()

	ds := &Dataset{}
	for i := int64(1); i <= 7; i++ {
		ds.Stops = append(ds.Stops, Stop{ID: i, ExternalID: string(rune('A'+i)) + "00", Name: "Stop"})
	}
	require.NoError(t, client.ReplaceDataset(ctx, ds))

	stops, err := client.Queries.ListStops(ctx)
	require.NoError(t, err)
	assert.Len(t, stops, 7)
}

func TestReplaceDataset_FailureRollsBack(t *testing.T) {
	client := newTestClient(t, "")
	ctx := context.Background()
	require.NoError(t, client.ReplaceDataset(ctx, fixtureDataset()))

	duplicate := &Dataset{Stops: []Stop{
		{ID: 1, ExternalID: "101", Name: "A"},
		{ID: 2, ExternalID: "101", Name: "B"},
	}}
	err := client.ReplaceDataset(ctx, duplicate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert stops batch")

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts["stops"], "previous dataset must survive a failed replace")
}
