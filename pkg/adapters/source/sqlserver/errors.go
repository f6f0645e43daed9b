//go:build sqlserver || all_adapters

package sqlserver

import (
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// permissionCodes are the engine error numbers SQL Server raises when the
// login lacks a permission on an object, a database, or the server state.
var permissionCodes = map[int32]bool{
	229: true, // object permission denied
	230: true, // column permission denied
	262: true, // VIEW DATABASE STATE or similar permission denied
	297: true, // user does not have permission to perform this action
	300: true, // server permission denied
	916: true, // cannot access the database under the current security context
}

// wrapPermission tags permission errors with apperrors.ErrPermissionDenied
// so introspection can degrade to a lower tier instead of failing the crawl.
func wrapPermission(err error, operation string) error {
	if err == nil {
		return nil
	}
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) && permissionCodes[sqlErr.Number] {
		return fmt.Errorf("%s: %s: %w", operation, sqlErr.Message, apperrors.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
