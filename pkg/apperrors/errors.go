package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrPermissionDenied     = errors.New("permission denied by source")
	ErrCrawlInProgress      = errors.New("a crawl is already in progress for this source")
	ErrSourceDeleting       = errors.New("source is being deleted")
	ErrUnsupportedKind      = errors.New("unsupported source kind")
	ErrUnsupportedOperation = errors.New("operation not supported for this source kind")
	ErrQueryRejected        = errors.New("query rejected by read-only guard")
)
