package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrMembershipNotFound = errors.New("membership not found")
)

// UserStore defines the interface for user storage operations.
// Emails are stored lower-cased and are unique.
type UserStore interface {
	// Create creates a new user together with its memberships.
	// Returns ErrUserAlreadyExists if the ID or email is already taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID, including memberships in join order.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email.
	// Returns ErrUserNotFound if no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// AddMembership appends a membership to the user.
	// Returns ErrUserNotFound or ErrMembershipExists. Stores that enforce
	// referential integrity also return ErrOrganizationNotFound.
	AddMembership(ctx context.Context, userID uuid.UUID, membership models.Membership) error

	// SetActiveOrganization updates the user's active organization pointer.
	// Returns ErrUserNotFound if the user doesn't exist and ErrMembershipNotFound
	// if the user does not belong to orgID.
	SetActiveOrganization(ctx context.Context, userID, orgID uuid.UUID) error
}
