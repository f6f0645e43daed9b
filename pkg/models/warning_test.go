package models

import "testing"

func TestAnyPermissionDenied(t *testing.T) {
	informational := []Warning{
		{Severity: SeverityInfo, Feature: "foreign_keys"},
		{Severity: SeverityInfo, Feature: "column_statistics"},
	}
	if AnyPermissionDenied(informational) {
		t.Error("informational warnings must not count as permission failures")
	}

	mixed := append(informational, Warning{
		Severity:         SeverityWarning,
		Feature:          "pg_catalog",
		PermissionDenied: true,
	})
	if !AnyPermissionDenied(mixed) {
		t.Error("expected the denied tier to be detected")
	}
	if AnyPermissionDenied(nil) {
		t.Error("no warnings means no permission failures")
	}
}
