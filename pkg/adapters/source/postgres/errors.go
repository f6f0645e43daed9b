//go:build postgres || all_adapters

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// insufficientPrivilege is the SQLSTATE PostgreSQL raises when the connected
// role lacks access to a relation or schema.
const insufficientPrivilege = "42501"

// wrapPermission converts privilege failures into apperrors.ErrPermissionDenied
// so tiered introspection can fall through instead of aborting the crawl.
func wrapPermission(err error, operation string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == insufficientPrivilege {
		return fmt.Errorf("%s: %s: %w", operation, pgErr.Message, apperrors.ErrPermissionDenied)
	}

	return fmt.Errorf("%s: %w", operation, err)
}
