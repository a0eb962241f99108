package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATE codes that indicate the commit lost a race and may be
// retried: serialization_failure, deadlock_detected, lock_not_available.
var retryablePGCodes = map[string]struct{}{
	"40001": {},
	"40P01": {},
	"55P03": {},
}

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks for
// the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsSerializationConflict reports whether the error means the commit
// conflicted with a concurrent one and the whole operation can be retried.
// Covers Postgres serialization/deadlock SQLSTATEs and SQLite busy locks.
func IsSerializationConflict(err error) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		_, ok := retryablePGCodes[pgxErr.Code]
		return ok
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		_, ok := retryablePGCodes[string(pqErr.Code)]
		return ok
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
