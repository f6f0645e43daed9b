package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return logger, recorded
}

func TestRecorder_CrawlLifecycle(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	rec := NewRecorder(logger)
	sourceID := uuid.New()
	ctx := context.Background()

	rec.CrawlStarted(ctx, sourceID, "postgres")
	rec.CrawlSucceeded(ctx, sourceID, CrawlOutcome{
		Tables:        12,
		Columns:       88,
		ForeignKeys:   7,
		Warnings:      2,
		NodesUpserted: 101,
		DurationMs:    4321,
	})

	logs := recorded.All()
	require.Len(t, logs, 2)

	started := logs[0]
	assert.Equal(t, zapcore.InfoLevel, started.Level)
	assert.Equal(t, "crawl started", started.Message)
	assert.Equal(t, "audit", started.LoggerName)

	fields := started.ContextMap()
	assert.Equal(t, sourceID.String(), fields["source_id"])
	assert.Equal(t, "postgres", fields["kind"])
	assert.Equal(t, "info", fields["severity"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventCrawlStarted, event.EventType)
	assert.Equal(t, sourceID, event.SourceID)

	succeeded := logs[1]
	assert.Equal(t, "crawl succeeded", succeeded.Message)
	sFields := succeeded.ContextMap()
	assert.Equal(t, int64(12), sFields["tables"])
	assert.Equal(t, int64(4321), sFields["duration_ms"])
}

func TestRecorder_CrawlFailedIsWarning(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	rec := NewRecorder(logger)
	sourceID := uuid.New()

	rec.CrawlFailed(context.Background(), sourceID, "connect: connection refused")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)

	fields := logs[0].ContextMap()
	assert.Equal(t, "warning", fields["severity"])
	assert.Equal(t, "connect: connection refused", fields["reason"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventCrawlFailed, event.EventType)
	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connect: connection refused", details["reason"])
}

func TestRecorder_InjectionDetectedIsCritical(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	rec := NewRecorder(logger)
	sourceID := uuid.New()

	rec.InjectionDetected(context.Background(), sourceID, InjectionAttempt{
		ArgIndex:    1,
		Fingerprint: "s&1c",
	})

	logs := recorded.All()
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level, "injection attempts should alert at ERROR level")
	assert.Equal(t, "SQL injection attempt detected", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "critical", fields["severity"])
	assert.Equal(t, "s&1c", fields["fingerprint"])
	assert.Equal(t, int64(1), fields["arg_index"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventInjectionDetected, event.EventType)
}

func TestRecorder_QueryRejected(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	rec := NewRecorder(logger)
	sourceID := uuid.New()

	rec.QueryRejected(context.Background(), sourceID, QueryRejection{
		Statement: "UNKNOWN",
		Reason:    "multiple statements are not allowed",
	})

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)

	var event Event
	fields := logs[0].ContextMap()
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventQueryRejected, event.EventType)

	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN", details["statement_type"])
}

func TestRecorder_SourceLifecycle(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	rec := NewRecorder(logger)
	sourceID := uuid.New()
	ctx := context.Background()

	rec.SourceCreated(ctx, sourceID, "mongodb")
	rec.SourceDeleted(ctx, sourceID, 412)

	logs := recorded.All()
	require.Len(t, logs, 2)

	assert.Equal(t, "source created", logs[0].Message)
	assert.Equal(t, "mongodb", logs[0].ContextMap()["kind"])

	assert.Equal(t, "source deleted", logs[1].Message)
	assert.Equal(t, int64(412), logs[1].ContextMap()["rows_removed"])
}

func TestRecorder_NilLogger(t *testing.T) {
	rec := NewRecorder(nil)
	// Must not panic.
	rec.CrawlStarted(context.Background(), uuid.New(), "duckdb")
}
