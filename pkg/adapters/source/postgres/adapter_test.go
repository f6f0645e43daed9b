//go:build postgres || all_adapters

package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func TestBuildConnectionString(t *testing.T) {
	cfg := models.SourceConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "crawler",
		Password: "p@ss/word#1",
		Database: "warehouse",
		SSLMode:  "disable",
	}

	connStr := buildConnectionString(cfg)

	if !strings.HasPrefix(connStr, "postgresql://crawler:") {
		t.Errorf("unexpected prefix: %s", connStr)
	}
	if strings.Contains(connStr, "p@ss/word#1") {
		t.Errorf("password must be URL-escaped: %s", connStr)
	}
	if !strings.Contains(connStr, "@db.internal:5433/warehouse") {
		t.Errorf("host/port/database missing: %s", connStr)
	}
	if !strings.Contains(connStr, "sslmode=disable") {
		t.Errorf("sslmode missing: %s", connStr)
	}
}

func TestBuildConnectionString_Defaults(t *testing.T) {
	cfg := models.SourceConfig{
		Host:     "db.internal",
		User:     "crawler",
		Database: "warehouse",
	}

	connStr := buildConnectionString(cfg)

	if !strings.Contains(connStr, ":5432/") {
		t.Errorf("expected default port 5432: %s", connStr)
	}
	if !strings.Contains(connStr, "sslmode=require") {
		t.Errorf("expected default sslmode require: %s", connStr)
	}
}

func TestBuildConnectionString_DSNPassthrough(t *testing.T) {
	cfg := models.SourceConfig{DSN: "postgresql://u:p@h:5432/d?sslmode=disable"}
	if got := buildConnectionString(cfg); got != cfg.DSN {
		t.Errorf("expected DSN passthrough, got %s", got)
	}
}

func TestWrapPermission_InsufficientPrivilege(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42501", Message: "permission denied for table accounts"}

	err := wrapPermission(pgErr, "query pg_catalog tables")
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("42501 should map to ErrPermissionDenied, got %v", err)
	}
	if !strings.Contains(err.Error(), "query pg_catalog tables") {
		t.Errorf("operation context missing: %v", err)
	}
}

func TestWrapPermission_OtherErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	if err := wrapPermission(pgErr, "query"); errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("42P01 must not map to ErrPermissionDenied: %v", err)
	}

	plain := errors.New("connection reset")
	wrapped := wrapPermission(plain, "query")
	if !errors.Is(wrapped, plain) {
		t.Errorf("original error must stay unwrappable: %v", wrapped)
	}

	if wrapPermission(nil, "query") != nil {
		t.Error("nil error must pass through")
	}
}

func TestTableTiers_Shape(t *testing.T) {
	a := &Adapter{}
	tiers := a.TableTiers()

	if len(tiers) != 2 {
		t.Fatalf("expected 2 table tiers, got %d", len(tiers))
	}
	if !tiers[0].HasComments {
		t.Error("pg_catalog tier should carry comments")
	}
	if tiers[1].HasComments {
		t.Error("information_schema fallback must not claim comments")
	}
	for _, tier := range tiers {
		if tier.Remediation == "" {
			t.Errorf("tier %s has no remediation", tier.Feature)
		}
	}
}

func TestRowCountStrategies_Shape(t *testing.T) {
	a := &Adapter{}
	strategies := a.RowCountStrategies()

	if len(strategies) != 3 {
		t.Fatalf("expected 3 strategies, got %d", len(strategies))
	}
	if strategies[0].Exact || strategies[1].Exact {
		t.Error("estimate strategies must not claim exactness")
	}
	if !strategies[2].Exact {
		t.Error("count_star must be exact")
	}
}

func TestForeignKeyTiers_Shape(t *testing.T) {
	a := &Adapter{}
	tiers := a.ForeignKeyTiers()

	if len(tiers) != 2 {
		t.Fatalf("expected 2 foreign key tiers, got %d", len(tiers))
	}
	if tiers[0].Feature != "pg_constraint" {
		t.Errorf("richest tier should be pg_constraint, got %s", tiers[0].Feature)
	}
}

func TestPgTypeNameFromOID(t *testing.T) {
	if got := pgTypeNameFromOID(2950); got != "UUID" {
		t.Errorf("OID 2950 = %s, want UUID", got)
	}
	if got := pgTypeNameFromOID(25); got != "TEXT" {
		t.Errorf("OID 25 = %s, want TEXT", got)
	}
	if got := pgTypeNameFromOID(999999); got != "UNKNOWN" {
		t.Errorf("unknown OID = %s, want UNKNOWN", got)
	}
}

func TestQualifiedTableName(t *testing.T) {
	if got := qualifiedTableName("public", "accounts"); got != `"public"."accounts"` {
		t.Errorf("got %s", got)
	}
	if got := qualifiedTableName("", "accounts"); got != `"accounts"` {
		t.Errorf("got %s", got)
	}
}
