package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careslot/careslot/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgExclusionViolation is the SQLSTATE raised when a write trips the
// doctor/interval EXCLUDE constraint (the last-resort double-booking guard).
const pgExclusionViolation = "23P01"

// withTimeout bounds a store call. Every repository method runs under this
// deadline so no request can block indefinitely on the database.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

// storeErr normalizes driver failures: deadline expiry and cancellation become
// ErrStoreUnavailable, the only retryable error kind the API exposes.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrStoreUnavailable
	}
	return err
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation
}
