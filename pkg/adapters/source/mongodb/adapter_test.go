//go:build mongodb || all_adapters

package mongodb

import (
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func TestBuildURI(t *testing.T) {
	cfg := models.SourceConfig{
		Host:     "mongo.internal",
		Port:     27018,
		User:     "crawler",
		Password: "p@ss/word#1",
		Database: "appdata",
	}

	uri := buildURI(cfg)

	if !strings.HasPrefix(uri, "mongodb://") {
		t.Errorf("expected mongodb scheme, got %q", uri)
	}
	if !strings.Contains(uri, "mongo.internal:27018") {
		t.Errorf("expected host and port, got %q", uri)
	}
	if !strings.Contains(uri, "authSource=admin") {
		t.Errorf("expected authSource for credentialed config, got %q", uri)
	}
	if strings.Contains(uri, "p@ss/word#1") {
		t.Errorf("expected password to be escaped, got %q", uri)
	}
}

func TestBuildURI_NoCredentials(t *testing.T) {
	cfg := models.SourceConfig{Host: "localhost", Database: "appdata"}

	uri := buildURI(cfg)

	if strings.Contains(uri, "authSource") {
		t.Errorf("expected no authSource without credentials, got %q", uri)
	}
	if !strings.Contains(uri, ":27017") {
		t.Errorf("expected default port, got %q", uri)
	}
}

func TestBuildURI_DSNPassthrough(t *testing.T) {
	cfg := models.SourceConfig{DSN: "mongodb+srv://u:p@cluster0.example.net/?retryWrites=false"}

	if got := buildURI(cfg); got != cfg.DSN {
		t.Errorf("expected DSN passthrough, got %q", got)
	}
}

func TestWrapPermission_Unauthorized(t *testing.T) {
	src := mongo.CommandError{Code: 13, Message: "not authorized on appdata to execute command"}

	err := wrapPermission(src, "list collections")

	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if !strings.Contains(err.Error(), "list collections") {
		t.Errorf("expected operation in message, got %q", err.Error())
	}
}

func TestWrapPermission_OtherErrors(t *testing.T) {
	nsMissing := mongo.CommandError{Code: 26, Message: "ns does not exist"}
	if err := wrapPermission(nsMissing, "sample"); errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("code 26 should not map to ErrPermissionDenied, got %v", err)
	}

	plain := errors.New("connection reset")
	wrapped := wrapPermission(plain, "count")
	if !errors.Is(wrapped, plain) {
		t.Errorf("expected wrapped error to unwrap to original, got %v", wrapped)
	}

	if wrapPermission(nil, "noop") != nil {
		t.Error("expected nil passthrough")
	}
}

func TestTableTiers_Shape(t *testing.T) {
	a := &Adapter{}

	tiers := a.TableTiers()

	if len(tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(tiers))
	}
	for _, tier := range tiers {
		if tier.HasComments {
			t.Errorf("tier %s should not claim comments", tier.Feature)
		}
	}
	if tiers[0].Feature != "list_collections" {
		t.Errorf("expected full listing first, got %s", tiers[0].Feature)
	}
}

func TestForeignKeyTiers_Empty(t *testing.T) {
	a := &Adapter{}

	if tiers := a.ForeignKeyTiers(); len(tiers) != 0 {
		t.Errorf("expected no foreign key tiers, got %d", len(tiers))
	}
}

func TestRowCountStrategies_Shape(t *testing.T) {
	a := &Adapter{}

	strategies := a.RowCountStrategies()

	if len(strategies) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(strategies))
	}
	if strategies[0].Exact {
		t.Error("estimated_document_count should not be exact")
	}
	if !strategies[1].Exact {
		t.Error("count_documents should be exact")
	}
	if a.SupportsColumnProfiles() {
		t.Error("mongodb should not claim column profile support")
	}
}

func mustRaw(t *testing.T, doc any) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal test document: %v", err)
	}
	return raw
}

func TestFieldAccumulator_NestedPaths(t *testing.T) {
	acc := newFieldAccumulator()

	doc := mustRaw(t, bson.D{
		{Key: "name", Value: "widget"},
		{Key: "price", Value: 9.99},
		{Key: "dims", Value: bson.D{
			{Key: "w", Value: int32(10)},
			{Key: "h", Value: int32(20)},
		}},
		{Key: "tags", Value: bson.A{"a", "b"}},
	})
	if err := acc.observeDocument(doc, ""); err != nil {
		t.Fatalf("observe: %v", err)
	}

	records := acc.records("appdata", "products", 1)

	byPath := map[string]string{}
	for _, r := range records {
		byPath[r.Name] = r.DataType
	}

	expected := map[string]string{
		"name":   "string",
		"price":  "double",
		"dims":   "object",
		"dims.w": "int",
		"dims.h": "int",
		"tags":   "array",
	}
	for path, wantType := range expected {
		if got, ok := byPath[path]; !ok || got != wantType {
			t.Errorf("path %s: got %q, want %q", path, byPath[path], wantType)
		}
	}
}

func TestFieldAccumulator_NullAndMissing(t *testing.T) {
	acc := newFieldAccumulator()

	first := mustRaw(t, bson.D{
		{Key: "email", Value: "x@example.com"},
		{Key: "nickname", Value: nil},
	})
	second := mustRaw(t, bson.D{
		{Key: "email", Value: "y@example.com"},
	})
	for _, doc := range []bson.Raw{first, second} {
		if err := acc.observeDocument(doc, ""); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	records := acc.records("appdata", "users", 2)

	type fieldView struct {
		DataType string
		Nullable bool
	}
	byPath := map[string]fieldView{}
	for _, r := range records {
		byPath[r.Name] = fieldView{DataType: r.DataType, Nullable: r.Nullable}
	}

	if c := byPath["email"]; c.Nullable {
		t.Error("email present in every document should not be nullable")
	}
	nickname, ok := byPath["nickname"]
	if !ok {
		t.Fatal("nickname should be recorded")
	}
	if !nickname.Nullable {
		t.Error("nickname with null value should be nullable")
	}
	if nickname.DataType != "null" {
		t.Errorf("nickname type = %q, want null", nickname.DataType)
	}
}

func TestFieldAccumulator_PolymorphicTypes(t *testing.T) {
	acc := newFieldAccumulator()

	docs := []bson.Raw{
		mustRaw(t, bson.D{{Key: "code", Value: "A1"}}),
		mustRaw(t, bson.D{{Key: "code", Value: int32(42)}}),
	}
	for _, doc := range docs {
		if err := acc.observeDocument(doc, ""); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	records := acc.records("appdata", "codes", 2)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].DataType != "int|string" {
		t.Errorf("expected sorted pipe-joined types, got %q", records[0].DataType)
	}
	if records[0].Nullable {
		t.Error("code present in every document should not be nullable")
	}
}
