package gtfsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	_ "modernc.org/sqlite"          // Pure Go SQLite driver
	"subwaychallenge.org/pathfinder/internal/appconf"
)

//go:embed schema.sql
var ddl string

// Client is the main entry point for the library
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
	logger  *slog.Logger
}

// NewClient opens the database named by config and applies the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
		logger:  slog.Default().With(slog.String("component", "gtfsdb")),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != memoryPath {
		return nil, errors.New("test database must use in-memory storage, got " + config.DBPath)
	}

	switch config.driverName() {
	case DriverModernc, DriverMattn:
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", config.Driver)
	}

	db, err := sql.Open(config.driverName(), config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.DBPath == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := performDatabaseMigration(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}
