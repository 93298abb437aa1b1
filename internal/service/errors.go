package service

import (
	"errors"

	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

// serviceError passes through already-typed domain errors (including
// retryable store failures) and wraps anything else as internal.
func serviceError(err error, message string) *appErrors.Error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
