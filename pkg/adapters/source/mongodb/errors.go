//go:build mongodb || all_adapters

package mongodb

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// code 13 is Unauthorized, raised when the connected user's roles do not
// cover the attempted action.
const codeUnauthorized = 13

// wrapPermission tags authorization failures with
// apperrors.ErrPermissionDenied so introspection can degrade to a lower
// tier instead of failing the crawl.
func wrapPermission(err error, operation string) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeUnauthorized {
		return fmt.Errorf("%s: %s: %w", operation, cmdErr.Message, apperrors.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
