package logging

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogError(logger, "store read failed", errors.New("disk gone"), slog.String("table", "stops"))

	output := buf.String()
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"msg":"store read failed"`)
	assert.Contains(t, output, `"error":"disk gone"`)
	assert.Contains(t, output, `"table":"stops"`)
}

func TestLogOperation_SkipsZeroDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogOperation(logger, "registry_loaded", slog.Duration("duration", 0), slog.Int("stops", 3))

	output := buf.String()
	assert.Contains(t, output, `"msg":"registry_loaded"`)
	assert.Contains(t, output, `"stops":3`)
	assert.NotContains(t, output, `"duration"`)

	buf.Reset()
	LogOperation(logger, "registry_loaded", slog.Duration("duration", time.Second))
	assert.Contains(t, buf.String(), `"duration"`)
}

func TestNilLoggerIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		LogError(nil, "x", errors.New("y"))
		LogOperation(nil, "x")
		LogWarning(nil, "x")
		LogHTTPRequest(nil, "GET", "/", 200, 1)
	})
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
	assert.Same(t, slog.Default(), OrDefault(nil))
}

type errorCloser struct{ err error }

func (e *errorCloser) Close() error { return e.err }

type fakeTx struct{ err error }

func (f *fakeTx) Rollback() error { return f.err }

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	SafeCloseWithLogging(&errorCloser{}, logger, "rows")
	assert.Empty(t, buf.String())

	SafeCloseWithLogging(&errorCloser{err: assert.AnError}, logger, "rows")
	assert.Contains(t, buf.String(), `"msg":"failed to close resource"`)
	assert.Contains(t, buf.String(), `"operation":"rows"`)
}

func TestSafeRollbackWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	SafeRollbackWithLogging(&fakeTx{err: sql.ErrTxDone}, logger, "replace_dataset")
	assert.Empty(t, buf.String())

	SafeRollbackWithLogging(&fakeTx{err: assert.AnError}, logger, "replace_dataset")
	assert.Contains(t, buf.String(), `"msg":"failed to rollback transaction"`)
}
