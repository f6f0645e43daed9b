//go:build mysql || all_adapters

package mysql

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// permissionCodes are the server error numbers MySQL raises when the
// connected account lacks a privilege.
var permissionCodes = map[uint16]bool{
	1044: true, // ER_DBACCESS_DENIED_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1142: true, // ER_TABLEACCESS_DENIED_ERROR
	1143: true, // ER_COLUMNACCESS_DENIED_ERROR
	1227: true, // ER_SPECIFIC_ACCESS_DENIED_ERROR
	1370: true, // ER_PROCACCESS_DENIED_ERROR
}

// wrapPermission tags privilege errors with apperrors.ErrPermissionDenied
// so introspection can degrade to a lower tier instead of failing the crawl.
func wrapPermission(err error, operation string) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && permissionCodes[myErr.Number] {
		return fmt.Errorf("%s: %s: %w", operation, myErr.Message, apperrors.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
