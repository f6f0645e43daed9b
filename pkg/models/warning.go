package models

// Warning severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Warning records a capability that could not be exercised during a crawl.
// Warnings accumulate across tiers and never abort the crawl.
// PermissionDenied marks warnings caused by a source-side authorization
// failure, as opposed to unsupported features or skipped rows.
type Warning struct {
	Severity         string `json:"severity"`
	Feature          string `json:"feature"`
	Message          string `json:"message"`
	Remediation      string `json:"remediation,omitempty"`
	PermissionDenied bool   `json:"permission_denied,omitempty"`
}

// AnyPermissionDenied reports whether any warning in the slice was caused
// by a source-side permission failure.
func AnyPermissionDenied(warnings []Warning) bool {
	for _, w := range warnings {
		if w.PermissionDenied {
			return true
		}
	}
	return false
}

// AvailableFeatures summarizes which introspection capabilities succeeded
// during a crawl, derived from the tiers that ran.
type AvailableFeatures struct {
	HasRowCounts        bool `json:"has_row_counts"`
	HasStatistics       bool `json:"has_statistics"`
	HasComments         bool `json:"has_comments"`
	HasPermissionErrors bool `json:"has_permission_errors"`
}

// EnhancedResult pairs crawl data with the warnings and capability flags
// accumulated while producing it, so callers can render "unknown" with a
// remediation hint instead of a misleading zero.
type EnhancedResult[T any] struct {
	Data     T                 `json:"data"`
	Warnings []Warning         `json:"warnings"`
	Features AvailableFeatures `json:"available_features"`
}
