package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/sprout-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("connection reset")

	tests := []struct {
		name   string
		err    error
		wantIs error
	}{
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, wantIs: store.ErrDuplicate},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), wantIs: store.ErrDuplicate},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503", ConstraintName: "fk"}, wantIs: store.ErrInvalidEntity},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, wantIs: store.ErrInvalidEntity},
		{name: "not null violation", err: &pgconn.PgError{Code: "23502", ColumnName: "kind"}, wantIs: store.ErrInvalidEntity},
		{name: "unmapped error keeps cause", err: plain, wantIs: plain},
		{name: "unmapped error is internal", err: plain, wantIs: store.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.err), tt.wantIs)
		})
	}

	assert.NoError(t, MapError(nil))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(plain))
}
