//go:build mongodb || all_adapters

package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

func TestParseDescriptor(t *testing.T) {
	desc, err := parseDescriptor(`{"collection":"events","filter":{"level":"error"},"limit":10}`)
	if err != nil {
		t.Fatalf("parseDescriptor failed: %v", err)
	}
	if desc.Collection != "events" {
		t.Errorf("expected collection events, got %q", desc.Collection)
	}
	if desc.Filter["level"] != "error" {
		t.Errorf("expected filter to carry level, got %v", desc.Filter)
	}
	if desc.Limit != 10 {
		t.Errorf("expected limit 10, got %d", desc.Limit)
	}
}

func TestParseDescriptor_Malformed(t *testing.T) {
	_, err := parseDescriptor(`SELECT * FROM events`)
	if !errors.Is(err, apperrors.ErrQueryRejected) {
		t.Fatalf("expected ErrQueryRejected for non-JSON input, got %v", err)
	}

	_, err = parseDescriptor(`{"filter":{}}`)
	if !errors.Is(err, apperrors.ErrQueryRejected) {
		t.Fatalf("expected ErrQueryRejected for a missing collection, got %v", err)
	}
}

func TestQuery_RejectsPositionalArgs(t *testing.T) {
	a := &Adapter{}

	_, err := a.Query(context.Background(), `{"collection":"events"}`, []any{"x"}, 0)
	if !errors.Is(err, apperrors.ErrQueryRejected) {
		t.Fatalf("expected ErrQueryRejected, got %v", err)
	}
}

func TestPlainValue(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := primitive.NewDateTimeFromTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	doc := bson.M{
		"_id":     oid,
		"created": ts,
		"tags":    bson.A{"a", "b"},
		"meta":    bson.M{"attempts": int32(3)},
		"note":    nil,
	}

	converted, ok := plainValue(doc).(map[string]any)
	if !ok {
		t.Fatal("expected a plain map")
	}
	if converted["_id"] != oid.Hex() {
		t.Errorf("expected hex ObjectID, got %v", converted["_id"])
	}
	if got, ok := converted["created"].(time.Time); !ok || !got.Equal(ts.Time()) {
		t.Errorf("expected a time.Time, got %v", converted["created"])
	}
	tags, ok := converted["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("expected a plain slice, got %v", converted["tags"])
	}
	meta, ok := converted["meta"].(map[string]any)
	if !ok || meta["attempts"] != int32(3) {
		t.Errorf("expected a nested plain map, got %v", converted["meta"])
	}
}
