package postgres

import (
	"errors"
	"fmt"

	"coipond/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// IsPgInvalidTextError checks if a parameter could not be converted to its
// column type, such as a malformed UUID
func IsPgInvalidTextError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 22P02 = invalid_text_representation
		return pgErr.Code == "22P02"
	}
	return false
}

// IsPgMissingRowError reports lookups that cannot match any row: no rows
// returned, or a key that is not a valid value of the key column
func IsPgMissingRowError(err error) bool {
	return IsPgNoRowsError(err) || IsPgInvalidTextError(err)
}

// IsPgSerializationError checks if error is a serialization failure or deadlock
func IsPgSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 = serialization_failure, 40P01 = deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// asConcurrentModification tags retryable transaction failures
func asConcurrentModification(err error) error {
	if IsPgSerializationError(err) && !errors.Is(err, domain.ErrConcurrentModification) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrentModification, err)
	}
	return err
}
