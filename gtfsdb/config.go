package gtfsdb

import "subwaychallenge.org/pathfinder/internal/appconf"

const memoryPath = ":memory:"

const (
	// DefaultBulkInsertBatchSize is the default batch size for multi-row INSERTs.
	DefaultBulkInsertBatchSize = 1000

	// maxBindVariables is SQLite's SQLITE_MAX_VARIABLE_NUMBER for the bundled
	// builds of both drivers.
	maxBindVariables = 32766

	// DriverModernc is the pure Go driver registered by modernc.org/sqlite.
	DriverModernc = "sqlite"
	// DriverMattn is the CGo driver registered by github.com/mattn/go-sqlite3.
	DriverMattn = "sqlite3"
)

// Config holds configuration options for the Client
type Config struct {
	DBPath string              // Path to SQLite database file, or :memory:
	Env    appconf.Environment // Test requires an in-memory database.
	Driver string              // DriverModernc (default) or DriverMattn.

	// BulkInsertBatchSize controls how many records are inserted per multi-row
	// INSERT statement. Set to 0 to use the default value.
	BulkInsertBatchSize int
}

func NewConfig(dbPath string, env appconf.Environment) Config {
	return Config{
		DBPath:              dbPath,
		Env:                 env,
		Driver:              DriverModernc,
		BulkInsertBatchSize: DefaultBulkInsertBatchSize,
	}
}

// GetBulkInsertBatchSize returns the configured batch size, or the default if not set
func (c Config) GetBulkInsertBatchSize() int {
	if c.BulkInsertBatchSize <= 0 {
		return DefaultBulkInsertBatchSize
	}
	return c.BulkInsertBatchSize
}

func (c Config) driverName() string {
	if c.Driver == "" {
		return DriverModernc
	}
	return c.Driver
}

// dsn appends the connection pragmas in the syntax of the configured driver.
// Foreign keys are enforced everywhere; WAL and the busy timeout only apply
// to file databases.
func (c Config) dsn() string {
	file := c.DBPath != memoryPath
	if c.driverName() == DriverMattn {
		if file {
			return c.DBPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		}
		return c.DBPath + "?_foreign_keys=on"
	}
	if file {
		return c.DBPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return c.DBPath + "?_pragma=foreign_keys(1)"
}
