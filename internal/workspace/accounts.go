package workspace

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
	"github.com/wolfeidau/worktable/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"
)

// AccountConfig configures an AccountService.
type AccountConfig struct {
	Users         store.UserStore
	Organizations store.OrganizationStore
	Sessions      store.SessionStore

	// BcryptCost is the password hashing cost.
	// Default: bcrypt.DefaultCost
	BcryptCost int
}

// AccountService manages users, their organizations and the active
// organization pointer.
type AccountService struct {
	users      store.UserStore
	orgs       store.OrganizationStore
	sessions   store.SessionStore
	bcryptCost int
}

// NewAccountService creates an AccountService.
func NewAccountService(cfg AccountConfig) *AccountService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		users:      cfg.Users,
		orgs:       cfg.Organizations,
		sessions:   cfg.Sessions,
		bcryptCost: cfg.BcryptCost,
	}
}

// CreateAccount registers a user together with a new organization they own.
// When orgName is blank the organization is named after the email's local part.
func (s *AccountService) CreateAccount(ctx context.Context, email, password, orgName string) (*models.User, *models.Organization, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil, Validation("email", "Email is required")
	}
	if password == "" {
		return nil, nil, Validation("password", "Password is required")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, nil, Validation("email", "Email already exists")
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, nil, Transient("Failed to look up user", err)
	}

	orgName = strings.TrimSpace(orgName)
	if orgName == "" {
		local, _, _ := strings.Cut(email, "@")
		orgName = local + "'s Org"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, nil, &Error{Kind: KindInternal, Message: "Failed to hash password", Err: err}
	}

	userID := uuid.Must(uuid.NewV7())
	org, err := s.createOrganization(ctx, userID, orgName)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	user := &models.User{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hash),
		Memberships: []models.Membership{
			{OrgID: org.OrgID, Name: org.Name, Role: models.RoleOwner, JoinedAt: now},
		},
		ActiveOrgID: &org.OrgID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if delErr := s.orgs.Delete(ctx, org.OrgID); delErr != nil {
			log.Warn().Err(delErr).Str("org_id", org.OrgID.String()).Msg("Failed to remove organization after user creation failed")
		}
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, nil, Validation("email", "Email already exists")
		}
		return nil, nil, Transient("Failed to create user", err)
	}

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("org_id", org.OrgID.String()).
		Msg("Account created")

	return user, org, nil
}

// Login checks the credentials and returns the user.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	m := telemetry.GetMetrics()
	fail := func(err error, reason string) (*models.User, error) {
		m.LoginFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fail(Validation("email", "Email is required"), "missing_email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return fail(Validation("email", "User does not exist"), "unknown_user")
		}
		return fail(Transient("Failed to look up user", err), "store_error")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("user_id", user.UserID.String()).Msg("Password mismatch")
		return fail(NotAuthenticated("password", "Incorrect password"), "bad_password")
	}

	m.LoginsTotal.Add(ctx, 1)
	return user, nil
}

// Logout ends a session. Ending a session that no longer exists succeeds.
func (s *AccountService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return Transient("Failed to end session", err)
	}
	return nil
}

// LogoutEverywhere ends every session of the user and returns how many ended.
func (s *AccountService) LogoutEverywhere(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, Transient("Failed to end sessions", err)
	}
	log.Debug().Str("user_id", userID.String()).Int("sessions", n).Msg("Ended all sessions")
	return n, nil
}

// CurrentUser returns the user with their memberships.
func (s *AccountService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// SwitchOrganization points the user's active organization at orgID. The
// pointer is unchanged when the switch is rejected.
func (s *AccountService) SwitchOrganization(ctx context.Context, userID, orgID uuid.UUID) (*models.Organization, *models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsMember(orgID) {
		return nil, nil, Forbidden("User is not a member of this organization")
	}

	if err := s.setActive(ctx, userID, orgID); err != nil {
		return nil, nil, err
	}

	telemetry.GetMetrics().OrgSwitchesTotal.Add(ctx, 1)
	log.Debug().Str("user_id", userID.String()).Str("org_id", orgID.String()).Msg("Active organization switched")

	user, err = s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return org, user, nil
}

// CreateOrganization creates an organization owned by the user and makes it active.
func (s *AccountService) CreateOrganization(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, *models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, Validation("organisationName", "Organisation name is required")
	}

	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, nil, err
	}

	org, err := s.createOrganization(ctx, userID, name)
	if err != nil {
		return nil, nil, err
	}

	err = s.users.AddMembership(ctx, userID, models.Membership{
		OrgID:    org.OrgID,
		Name:     org.Name,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	})
	if err != nil {
		if delErr := s.orgs.Delete(ctx, org.OrgID); delErr != nil {
			log.Warn().Err(delErr).Str("org_id", org.OrgID.String()).Msg("Failed to remove organization without owner")
		}
		return nil, nil, Transient("Failed to add membership", err)
	}

	if err := s.setActive(ctx, userID, org.OrgID); err != nil {
		return nil, nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return org, user, nil
}

// AddMemberAndSwitch adds the user with email to orgID and makes it their
// active organization. The actor must already belong to orgID.
func (s *AccountService) AddMemberAndSwitch(ctx context.Context, actorID, orgID uuid.UUID, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, Validation("email", "Email is required")
	}

	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsMember(orgID) {
		return nil, Forbidden("User is not a member of this organization")
	}

	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, Transient("Failed to look up user", err)
	}

	err = s.users.AddMembership(ctx, target.UserID, models.Membership{
		OrgID:    org.OrgID,
		Name:     org.Name,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	})
	if err != nil && !errors.Is(err, store.ErrMembershipExists) {
		return nil, Transient("Failed to add membership", err)
	}

	if err := s.setActive(ctx, target.UserID, orgID); err != nil {
		return nil, err
	}

	log.Info().
		Str("actor_id", actorID.String()).
		Str("user_id", target.UserID.String()).
		Str("org_id", orgID.String()).
		Msg("Member added to organization")

	return s.getUser(ctx, target.UserID)
}

func (s *AccountService) createOrganization(ctx context.Context, createdBy uuid.UUID, name string) (*models.Organization, error) {
	now := time.Now()
	org := &models.Organization{
		OrgID:     uuid.Must(uuid.NewV7()),
		Name:      name,
		Slug:      slugify(name),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orgs.Create(ctx, org); err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return nil, Validation("organisationName", "Organisation already exists")
		}
		return nil, Transient("Failed to create organization", err)
	}
	return org, nil
}

func (s *AccountService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, Transient("Failed to get user", err)
	}
	return user, nil
}

func (s *AccountService) getOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, NotFound("Organization not found")
		}
		return nil, Transient("Failed to get organization", err)
	}
	return org, nil
}

func (s *AccountService) setActive(ctx context.Context, userID, orgID uuid.UUID) error {
	err := s.users.SetActiveOrganization(ctx, userID, orgID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrUserNotFound):
		return NotFound("User not found")
	case errors.Is(err, store.ErrMembershipNotFound):
		return Forbidden("User is not a member of this organization")
	default:
		return Transient("Failed to update active organization", err)
	}
}

// slugify lower-cases name and collapses every run of other characters into a dash.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
