package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Create inserts the user and its memberships in one transaction.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO users (
			user_id, email, password_hash, active_org_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`,
		user.UserID,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.ActiveOrgID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	for _, m := range user.Memberships {
		if err := insertMembership(ctx, tx, user.UserID, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Int("memberships", len(user.Memberships)).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID, including memberships.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `WHERE user_id = $1`, userID)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (s *UserStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT user_id, email, password_hash, active_org_id, created_at, updated_at
		FROM users
	` + where

	var user models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.ActiveOrgID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT org_id, org_name, role, joined_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY joined_at, org_id
	`, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.OrgID, &m.Name, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		user.Memberships = append(user.Memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return &user, nil
}

// AddMembership appends a membership to the user.
func (s *UserStore) AddMembership(ctx context.Context, userID uuid.UUID, membership models.Membership) error {
	if err := insertMembership(ctx, s.pool, userID, membership); err != nil {
		return err
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("org_id", membership.OrgID.String()).
		Str("role", membership.Role).
		Msg("Added membership")

	return nil
}

// SetActiveOrganization points the user at one of their organizations.
func (s *UserStore) SetActiveOrganization(ctx context.Context, userID, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET
			active_org_id = $2,
			updated_at = $3
		WHERE user_id = $1
		  AND EXISTS (SELECT 1 FROM memberships WHERE user_id = $1 AND org_id = $2)
	`, userID, orgID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set active organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return store.ErrUserNotFound
		}
		return store.ErrMembershipNotFound
	}

	return nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMembership(ctx context.Context, db execer, userID uuid.UUID, m models.Membership) error {
	joinedAt := m.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}

	_, err := db.Exec(ctx, `
		INSERT INTO memberships (user_id, org_id, org_name, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, m.OrgID, m.Name, m.Role, joinedAt)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", mapPostgresError(err))
	}
	return nil
}
