package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	httputil "github.com/wolfeidau/worktable/internal/http"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
)

const (
	DefaultCookieName = "_session"
	DefaultSessionTTL = 24 * time.Hour
)

// ErrUnauthenticated is returned when a request carries no usable session.
var ErrUnauthenticated = errors.New("unauthenticated")

type contextKey int

const sessionContextKey contextKey = iota

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	Sessions store.SessionStore

	// CookieName is the name of the session cookie.
	// Default: "_session"
	CookieName string

	// TTL is how long a session lives after it is issued.
	// Default: 24h
	TTL time.Duration

	// Secure marks the cookie as HTTPS only. Disable for plain HTTP development.
	Secure bool
}

// SessionManager issues and validates server-side sessions referenced by an
// opaque cookie.
type SessionManager struct {
	sessions   store.SessionStore
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	return &SessionManager{
		sessions:   cfg.Sessions,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}
}

// Issue creates a session for userID and sets the session cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		SessionID:  uuid.Must(uuid.NewV7()),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastUsedAt: now,
		UserAgent:  r.UserAgent(),
		IPAddress:  httputil.ClientIPFromContext(r.Context()),
	}

	if err := m.sessions.Create(r.Context(), session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    session.SessionID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
	})

	log.Debug().
		Str("session_id", session.SessionID.String()).
		Str("user_id", userID.String()).
		Msg("Session issued")

	return session, nil
}

// Resolve returns the live session referenced by the request cookie.
// Missing, malformed, unknown and expired sessions all yield ErrUnauthenticated.
func (m *SessionManager) Resolve(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	sessionID, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := m.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrSessionExpired) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := m.sessions.UpdateLastUsed(r.Context(), sessionID); err != nil {
		log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("Failed to update session last used")
	}

	return session, nil
}

// Clear expires the session cookie on the client.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSession rejects requests without a live session with 401 and adds
// the session to the request context otherwise.
func (m *SessionManager) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := m.Resolve(r)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					log.Error().Err(err).Msg("Session lookup failed")
				} else {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("Session auth: rejected")
				}
				writeUnauthenticated(w)
				return
			}

			ctx := WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession adds session to ctx.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session added by RequireSession, or nil.
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "not_authenticated",
		"message": "Not authenticated",
	})
}
