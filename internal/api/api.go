// Package api exposes the workspace services as JSON over HTTP. Every
// response uses the same envelope: a success flag, an optional message and
// offending field, plus the payload fields of the operation.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/worktable/internal/auth"
	"github.com/wolfeidau/worktable/internal/workspace"
)

const maxBodyBytes = 8 << 20

// Server holds the services behind the API routes.
type Server struct {
	accounts  *workspace.AccountService
	documents *workspace.DocumentService
	sessions  *auth.SessionManager
}

// NewServer creates a Server.
func NewServer(accounts *workspace.AccountService, documents *workspace.DocumentService, sessions *auth.SessionManager) *Server {
	return &Server{
		accounts:  accounts,
		documents: documents,
		sessions:  sessions,
	}
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	requireSession := s.sessions.RequireSession()
	protected := func(h http.HandlerFunc) http.Handler {
		return requireSession(h)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, envelope{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/accounts", s.createAccount)
	mux.HandleFunc("POST /api/v1/sessions", s.login)
	mux.HandleFunc("DELETE /api/v1/sessions/current", s.logout)
	mux.Handle("DELETE /api/v1/sessions", protected(s.logoutEverywhere))
	mux.Handle("GET /api/v1/sessions/current", protected(s.currentSession))

	mux.Handle("GET /api/v1/users/me", protected(s.currentUser))
	mux.Handle("POST /api/v1/users/me/active-organization", protected(s.switchOrganization))

	mux.Handle("POST /api/v1/organizations", protected(s.createOrganization))
	mux.Handle("POST /api/v1/organizations/{orgID}/members", protected(s.addMember))

	mux.Handle("GET /api/v1/workspace/document", protected(s.fetchDocument))
	mux.Handle("PUT /api/v1/workspace/document", protected(s.upsertDocument))

	return mux
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	if _, ok := body["success"]; !ok {
		body["success"] = status < http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps err onto a status code and the error envelope. Errors
// outside the workspace taxonomy are logged and reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := workspace.KindOf(err)
	status := statusFor(kind)

	body := envelope{"success": false, "error": string(kind)}
	var werr *workspace.Error
	if errors.As(err, &werr) && kind != workspace.KindInternal {
		body["message"] = werr.Message
		if werr.Field != "" {
			body["field"] = werr.Field
		}
	} else {
		body["message"] = "Internal server error"
	}

	ev := zerolog.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("kind", string(kind)).Msg("Request failed")

	writeJSON(w, r, status, body)
}

func statusFor(kind workspace.Kind) int {
	switch kind {
	case workspace.KindValidation, workspace.KindInvalidIdentifier:
		return http.StatusBadRequest
	case workspace.KindNotAuthenticated:
		return http.StatusUnauthorized
	case workspace.KindForbidden:
		return http.StatusForbidden
	case workspace.KindNotFound:
		return http.StatusNotFound
	case workspace.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return workspace.Validation("", "Invalid request body")
	}
	return nil
}
