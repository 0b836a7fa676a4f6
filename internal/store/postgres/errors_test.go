package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/worktable/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "duplicate email",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			expected: store.ErrUserAlreadyExists,
		},
		{
			name:     "duplicate organization name",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "organizations_name_key"},
			expected: store.ErrOrganizationAlreadyExists,
		},
		{
			name:     "duplicate membership",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "memberships_pkey"},
			expected: store.ErrMembershipExists,
		},
		{
			name:     "document for unknown organization",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "table_documents_org_id_fkey"},
			expected: store.ErrOrganizationNotFound,
		},
		{
			name:     "membership for unknown user",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "memberships_user_id_fkey"},
			expected: store.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapPostgresError(tt.err), tt.expected)
		})
	}

	t.Run("unknown constraint keeps the pg error", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "other_key"}
		err := mapPostgresError(pgErr)
		var target *pgconn.PgError
		require.True(t, errors.As(err, &target))
	})

	t.Run("non postgres error passes through", func(t *testing.T) {
		err := errors.New("boom")
		require.Same(t, err, mapPostgresError(err))
	})

	t.Run("nil", func(t *testing.T) {
		require.NoError(t, mapPostgresError(nil))
	})
}
