package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/worktable/internal/auth"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/workspace"
)

type credentialsRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganisationName string `json:"organisationName,omitempty"`
}

type switchOrganizationRequest struct {
	OrgID string `json:"orgId"`
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, org, err := s.accounts.CreateAccount(r.Context(), req.Email, req.Password, req.OrganisationName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.sessions.Issue(w, r, user.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, envelope{
		"message":      "User created successfully",
		"user":         user,
		"organization": org,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.sessions.Issue(w, r, user.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("user_id", user.UserID.String()).Msg("User logged in")

	writeJSON(w, r, http.StatusOK, envelope{
		"message": "Login successful",
		"user":    user,
	})
}

// logout ends the caller's session if there is one; it always clears the cookie.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if session, err := s.sessions.Resolve(r); err == nil {
		if err := s.accounts.Logout(r.Context(), session.SessionID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	s.sessions.Clear(w)
	writeJSON(w, r, http.StatusOK, envelope{"message": "Logged out"})
}

func (s *Server) logoutEverywhere(w http.ResponseWriter, r *http.Request) {
	n, err := s.accounts.LogoutEverywhere(r.Context(), auth.SessionFromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.sessions.Clear(w)
	writeJSON(w, r, http.StatusOK, envelope{"message": "Logged out of all sessions", "count": n})
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	writeJSON(w, r, http.StatusOK, envelope{
		"authenticated": true,
		"userId":        session.UserID,
		"expiresAt":     session.ExpiresAt,
	})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.CurrentUser(r.Context(), auth.SessionFromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, envelope{"user": user})
}

func (s *Server) switchOrganization(w http.ResponseWriter, r *http.Request) {
	var req switchOrganizationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	orgID, err := parseOrgID(req.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	org, user, err := s.accounts.SwitchOrganization(r.Context(), auth.SessionFromContext(r.Context()).UserID, orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		"message":      "Organization switched successfully",
		"organization": org,
		"user":         user,
	})
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	org, user, err := s.accounts.CreateOrganization(r.Context(), auth.SessionFromContext(r.Context()).UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, envelope{
		"message":      "Organization created successfully",
		"organization": org,
		"user":         user,
	})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseOrgID(r.PathValue("orgID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addMemberRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.accounts.AddMemberAndSwitch(r.Context(), auth.SessionFromContext(r.Context()).UserID, orgID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		"message": "User added to organization",
		"user":    user,
	})
}

func parseOrgID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, workspace.Validation("orgId", "Organization ID is required")
	}
	orgID, err := uuid.Parse(s)
	if err != nil || orgID == uuid.Nil {
		return uuid.Nil, workspace.InvalidIdentifier("orgId", "Invalid organization ID")
	}
	return orgID, nil
}

// requireMember loads the caller and checks they belong to orgID.
func (s *Server) requireMember(r *http.Request, orgID uuid.UUID) (*models.User, error) {
	user, err := s.accounts.CurrentUser(r.Context(), auth.SessionFromContext(r.Context()).UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsMember(orgID) {
		return nil, workspace.Forbidden("User is not a member of this organization")
	}
	return user, nil
}
