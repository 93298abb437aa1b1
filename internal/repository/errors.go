package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

// Store calls carry a bounded timeout so no caller hangs on a stalled
// connection; timeouts surface as retryable store errors.
const defaultQueryTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// wrapStore classifies a failed store call: connectivity-class failures
// become retryable ErrStoreUnavailable, everything else keeps the plain
// wrapped form the services translate to internal errors.
func wrapStore(op string, err error) error {
	if isTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status,
			fmt.Sprintf("%s: store unavailable", op))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 is connection exception, 57P01 is admin shutdown.
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01"
	}
	return false
}

// ErrDuplicateMember is returned when a member email is already taken.
var ErrDuplicateMember = errors.New("member email already registered")

// isUniqueViolation reports whether the error is a postgres 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
