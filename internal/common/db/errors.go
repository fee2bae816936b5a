package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	pgx "github.com/jackc/pgx/v4"
)

// Wrap names the failed operation. pgx.ErrNoRows becomes notFound so callers
// can tell a missing row from a failure.
func Wrap(err, notFound error, operation string) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, pgx.ErrNoRows):
		return notFound
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// IsRetryable reports failures a second attempt can fix: lost connections,
// serialization conflicts, deadlocks and lock timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgErr.Code == pgerrcode.LockNotAvailable
	}
	return pgconn.SafeToRetry(err)
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "network"
}
