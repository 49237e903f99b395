package service

import (
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// mapStoreError translates repository failures into API errors. Typed errors
// pass through untouched.
func mapStoreError(err error, resource, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", resource))
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
