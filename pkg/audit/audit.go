// Package audit provides structured audit logging for SIEM consumption.
// Crawl lifecycle transitions, source mutations, and rejected queries are
// logged as JSON events under a dedicated logger namespace for easy filtering.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType categorizes audit events for filtering and alerting.
type EventType string

const (
	EventCrawlStarted   EventType = "crawl_started"
	EventCrawlSucceeded EventType = "crawl_succeeded"
	EventCrawlFailed    EventType = "crawl_failed"
	EventSourceCreated  EventType = "source_created"
	EventSourceDeleted  EventType = "source_deleted"
	// EventQueryRejected is logged when the read-only guard refuses a statement.
	EventQueryRejected EventType = "query_rejected"
	// EventInjectionDetected is logged when libinjection flags a query argument.
	EventInjectionDetected EventType = "injection_detected"
)

// Event is the envelope serialized into every audit log line.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	SourceID  uuid.UUID `json:"source_id"`
	Details   any       `json:"details"`
	Severity  string    `json:"severity"` // info, warning, critical
}

// CrawlOutcome summarizes a finished crawl for the audit trail.
type CrawlOutcome struct {
	Tables        int   `json:"tables"`
	Columns       int   `json:"columns"`
	ForeignKeys   int   `json:"foreign_keys"`
	Warnings      int   `json:"warnings"`
	NodesUpserted int   `json:"nodes_upserted"`
	DurationMs    int64 `json:"duration_ms"`
}

// QueryRejection describes a statement refused by the read-only guard.
type QueryRejection struct {
	Statement string `json:"statement_type"`
	Reason    string `json:"reason"`
}

// InjectionAttempt describes a query argument that matched an injection pattern.
type InjectionAttempt struct {
	ArgIndex    int    `json:"arg_index"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// Sink receives audit events. Implementations must never fail the operation
// being audited; recording is best effort.
type Sink interface {
	CrawlStarted(ctx context.Context, sourceID uuid.UUID, kind string)
	CrawlSucceeded(ctx context.Context, sourceID uuid.UUID, outcome CrawlOutcome)
	CrawlFailed(ctx context.Context, sourceID uuid.UUID, reason string)
	SourceCreated(ctx context.Context, sourceID uuid.UUID, kind string)
	SourceDeleted(ctx context.Context, sourceID uuid.UUID, rowsRemoved int64)
	QueryRejected(ctx context.Context, sourceID uuid.UUID, rejection QueryRejection)
	InjectionDetected(ctx context.Context, sourceID uuid.UUID, attempt InjectionAttempt)
}

// Recorder logs audit events through zap. Events are serialized to JSON in an
// event_json field so SIEM pipelines can ingest them without parsing the
// surrounding log format.
type Recorder struct {
	logger *zap.Logger
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates a recorder with a dedicated "audit" logger namespace.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger.Named("audit")}
}

func (r *Recorder) CrawlStarted(ctx context.Context, sourceID uuid.UUID, kind string) {
	r.emit(EventCrawlStarted, sourceID, "info", map[string]string{"kind": kind},
		"crawl started",
		zap.String("kind", kind),
	)
}

func (r *Recorder) CrawlSucceeded(ctx context.Context, sourceID uuid.UUID, outcome CrawlOutcome) {
	r.emit(EventCrawlSucceeded, sourceID, "info", outcome,
		"crawl succeeded",
		zap.Int("tables", outcome.Tables),
		zap.Int("foreign_keys", outcome.ForeignKeys),
		zap.Int("warnings", outcome.Warnings),
		zap.Int64("duration_ms", outcome.DurationMs),
	)
}

func (r *Recorder) CrawlFailed(ctx context.Context, sourceID uuid.UUID, reason string) {
	r.emit(EventCrawlFailed, sourceID, "warning", map[string]string{"reason": reason},
		"crawl failed",
		zap.String("reason", reason),
	)
}

func (r *Recorder) SourceCreated(ctx context.Context, sourceID uuid.UUID, kind string) {
	r.emit(EventSourceCreated, sourceID, "info", map[string]string{"kind": kind},
		"source created",
		zap.String("kind", kind),
	)
}

func (r *Recorder) SourceDeleted(ctx context.Context, sourceID uuid.UUID, rowsRemoved int64) {
	r.emit(EventSourceDeleted, sourceID, "info", map[string]int64{"rows_removed": rowsRemoved},
		"source deleted",
		zap.Int64("rows_removed", rowsRemoved),
	)
}

func (r *Recorder) QueryRejected(ctx context.Context, sourceID uuid.UUID, rejection QueryRejection) {
	r.emit(EventQueryRejected, sourceID, "warning", rejection,
		"query rejected",
		zap.String("statement_type", rejection.Statement),
		zap.String("reason", rejection.Reason),
	)
}

func (r *Recorder) InjectionDetected(ctx context.Context, sourceID uuid.UUID, attempt InjectionAttempt) {
	r.emit(EventInjectionDetected, sourceID, "critical", attempt,
		"SQL injection attempt detected",
		zap.Int("arg_index", attempt.ArgIndex),
		zap.String("fingerprint", attempt.Fingerprint),
	)
}

// emit builds the event envelope and logs it at the level implied by severity.
func (r *Recorder) emit(eventType EventType, sourceID uuid.UUID, severity string, details any, msg string, fields ...zap.Field) {
	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SourceID:  sourceID,
		Details:   details,
		Severity:  severity,
	}

	// Marshaling known types does not fail.
	eventJSON, _ := json.Marshal(event)

	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all,
		zap.String("event_json", string(eventJSON)),
		zap.String("source_id", sourceID.String()),
		zap.String("severity", severity),
	)
	all = append(all, fields...)

	switch severity {
	case "critical":
		r.logger.Error(msg, all...)
	case "warning":
		r.logger.Warn(msg, all...)
	default:
		r.logger.Info(msg, all...)
	}
}
