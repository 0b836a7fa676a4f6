package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
)

func TestOrganizationStore(t *testing.T) {
	ctx := context.Background()
	s := NewOrganizationStore()

	org := &models.Organization{
		OrgID:     uuid.Must(uuid.NewV7()),
		Name:      "Acme",
		Slug:      "acme",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.Create(ctx, org))

	t.Run("duplicate id", func(t *testing.T) {
		dup := *org
		dup.Name = "Other"
		require.ErrorIs(t, s.Create(ctx, &dup), store.ErrOrganizationAlreadyExists)
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup := *org
		dup.OrgID = uuid.Must(uuid.NewV7())
		require.ErrorIs(t, s.Create(ctx, &dup), store.ErrOrganizationAlreadyExists)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := s.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, "Acme", got.Name)
		got.Name = "mutated"

		again, err := s.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, "Acme", again.Name)
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := s.GetByName(ctx, "Acme")
		require.NoError(t, err)
		require.Equal(t, org.OrgID, got.OrgID)

		_, err = s.GetByName(ctx, "acme")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("delete frees the name", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, org.OrgID))
		require.ErrorIs(t, s.Delete(ctx, org.OrgID), store.ErrOrganizationNotFound)

		_, err := s.Get(ctx, org.OrgID)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)

		again := *org
		again.OrgID = uuid.Must(uuid.NewV7())
		require.NoError(t, s.Create(ctx, &again))
	})
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	orgID := uuid.Must(uuid.NewV7())
	user := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Email:        "Jane@Example.com",
		PasswordHash: "hash",
		Memberships: []models.Membership{
			{OrgID: orgID, Name: "Acme", Role: models.RoleOwner, JoinedAt: time.Now()},
		},
		ActiveOrgID: &orgID,
	}
	require.NoError(t, s.Create(ctx, user))

	t.Run("duplicate email ignores case", func(t *testing.T) {
		dup := &models.User{UserID: uuid.Must(uuid.NewV7()), Email: "jane@example.com"}
		require.ErrorIs(t, s.Create(ctx, dup), store.ErrUserAlreadyExists)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := s.GetByEmail(ctx, "JANE@example.com")
		require.NoError(t, err)
		require.Equal(t, user.UserID, got.UserID)
		require.Equal(t, "jane@example.com", got.Email)
		require.Equal(t, orgID, *got.ActiveOrgID)

		_, err = s.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("memberships", func(t *testing.T) {
		other := uuid.Must(uuid.NewV7())
		require.ErrorIs(t, s.SetActiveOrganization(ctx, user.UserID, other), store.ErrMembershipNotFound)

		require.NoError(t, s.AddMembership(ctx, user.UserID, models.Membership{OrgID: other, Name: "Beta", Role: models.RoleMember}))
		require.ErrorIs(t, s.AddMembership(ctx, user.UserID, models.Membership{OrgID: other}), store.ErrMembershipExists)
		require.NoError(t, s.SetActiveOrganization(ctx, user.UserID, other))

		got, err := s.Get(ctx, user.UserID)
		require.NoError(t, err)
		require.Len(t, got.Memberships, 2)
		require.Equal(t, orgID, got.Memberships[0].OrgID)
		require.Equal(t, other, got.Memberships[1].OrgID)
		require.Equal(t, other, *got.ActiveOrgID)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		got, err := s.Get(ctx, user.UserID)
		require.NoError(t, err)
		got.Memberships[0].Role = "mutated"
		*got.ActiveOrgID = uuid.Nil

		again, err := s.Get(ctx, user.UserID)
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, again.Memberships[0].Role)
		require.NotEqual(t, uuid.Nil, *again.ActiveOrgID)
	})

	t.Run("unknown user", func(t *testing.T) {
		missing := uuid.Must(uuid.NewV7())
		_, err := s.Get(ctx, missing)
		require.ErrorIs(t, err, store.ErrUserNotFound)
		require.ErrorIs(t, s.AddMembership(ctx, missing, models.Membership{OrgID: orgID}), store.ErrUserNotFound)
		require.ErrorIs(t, s.SetActiveOrganization(ctx, missing, orgID), store.ErrUserNotFound)
	})
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	userID := uuid.Must(uuid.NewV7())

	newSession := func(expiresIn time.Duration) *models.Session {
		now := time.Now()
		return &models.Session{
			SessionID:  uuid.Must(uuid.NewV7()),
			UserID:     userID,
			CreatedAt:  now,
			ExpiresAt:  now.Add(expiresIn),
			LastUsedAt: now,
		}
	}

	active := newSession(time.Hour)
	expired := newSession(-time.Minute)
	require.NoError(t, s.Create(ctx, active))
	require.NoError(t, s.Create(ctx, expired))

	got, err := s.Get(ctx, active.SessionID)
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)

	_, err = s.Get(ctx, expired.SessionID)
	require.ErrorIs(t, err, store.ErrSessionExpired)

	require.NoError(t, s.UpdateLastUsed(ctx, active.SessionID))
	require.ErrorIs(t, s.UpdateLastUsed(ctx, uuid.Must(uuid.NewV7())), store.ErrSessionNotFound)

	count, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = s.Get(ctx, expired.SessionID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	require.NoError(t, s.Create(ctx, newSession(time.Hour)))
	count, err = s.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.ErrorIs(t, s.Delete(ctx, active.SessionID), store.ErrSessionNotFound)
}

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	orgID := uuid.Must(uuid.NewV7())
	alice := uuid.Must(uuid.NewV7())
	bob := uuid.Must(uuid.NewV7())

	_, err := s.GetByOrganization(ctx, orgID)
	require.ErrorIs(t, err, store.ErrDocumentNotFound)

	doc := &models.TableDocument{
		OrgID:     orgID,
		CreatedBy: alice,
		UpdatedBy: alice,
		Title:     "Roadmap",
		Columns:   []models.Column{{Key: "task", Label: "Task", InputType: "text"}},
		Rows:      []models.Row{{ID: "r1", Values: map[string]any{"task": "a"}}},
	}
	require.NoError(t, s.Upsert(ctx, doc))
	require.NotEqual(t, uuid.Nil, doc.DocumentID)
	first := *doc

	t.Run("replace keeps identity and creator", func(t *testing.T) {
		replacement := &models.TableDocument{
			OrgID:     orgID,
			CreatedBy: bob,
			UpdatedBy: bob,
			Title:     "Roadmap v2",
			Columns:   []models.Column{{Key: "task", Label: "Task", InputType: "text"}},
			Rows:      []models.Row{},
		}
		require.NoError(t, s.Upsert(ctx, replacement))
		require.Equal(t, first.DocumentID, replacement.DocumentID)
		require.Equal(t, alice, replacement.CreatedBy)
		require.Equal(t, bob, replacement.UpdatedBy)
		require.Equal(t, first.CreatedAt, replacement.CreatedAt)

		got, err := s.GetByOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, "Roadmap v2", got.Title)
		require.Empty(t, got.Rows)
	})

	t.Run("stored rows are isolated from callers", func(t *testing.T) {
		got, err := s.GetByOrganization(ctx, orgID)
		require.NoError(t, err)
		got.Columns[0].Label = "mutated"

		again, err := s.GetByOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, "Task", again.Columns[0].Label)
	})
}
