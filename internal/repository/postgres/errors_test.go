package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"coipond/internal/domain"
)

func TestErrorClassification(t *testing.T) {
	pgErr := func(code string) error {
		return fmt.Errorf("get blueprint: %w", &pgconn.PgError{Code: code})
	}

	tests := []struct {
		name          string
		err           error
		duplicate     bool
		foreignKey    bool
		invalidText   bool
		missingRow    bool
		serialization bool
	}{
		{name: "no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), missingRow: true},
		{name: "malformed uuid", err: pgErr("22P02"), invalidText: true, missingRow: true},
		{name: "unique violation", err: pgErr("23505"), duplicate: true},
		{name: "foreign key violation", err: pgErr("23503"), foreignKey: true},
		{name: "serialization failure", err: pgErr("40001"), serialization: true},
		{name: "deadlock", err: pgErr("40P01"), serialization: true},
		{name: "other pg error", err: pgErr("42P01")},
		{name: "plain error", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.duplicate, IsPgDuplicateError(tt.err))
			assert.Equal(t, tt.foreignKey, IsPgForeignKeyError(tt.err))
			assert.Equal(t, tt.invalidText, IsPgInvalidTextError(tt.err))
			assert.Equal(t, tt.missingRow, IsPgMissingRowError(tt.err))
			assert.Equal(t, tt.serialization, IsPgSerializationError(tt.err))
		})
	}
}

func TestAsConcurrentModification(t *testing.T) {
	err := asConcurrentModification(&pgconn.PgError{Code: "40001"})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	plain := errors.New("boom")
	assert.Same(t, plain, asConcurrentModification(plain))

	already := fmt.Errorf("%w: ledger moved", domain.ErrConcurrentModification)
	assert.Equal(t, already, asConcurrentModification(already))
}
