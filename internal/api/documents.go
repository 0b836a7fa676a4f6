package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/internal/auth"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/workspace"
)

// upsertDocumentRequest leaves Columns and Rows nil when the client omits
// them, so the service can tell a missing field from an empty table.
type upsertDocumentRequest struct {
	OrgID   string          `json:"orgId"`
	Title   string          `json:"title"`
	Content *string         `json:"content"`
	Columns []models.Column `json:"columns"`
	Rows    []models.Row    `json:"rows"`
}

// fetchDocument returns the document of the caller's active organization, or
// of org_id when given. An explicit org_id must be one of the caller's memberships.
func (s *Server) fetchDocument(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	var orgID uuid.UUID
	if raw := r.URL.Query().Get("org_id"); raw != "" {
		id, err := parseOrgID(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.requireMember(r, id); err != nil {
			writeError(w, r, err)
			return
		}
		orgID = id
	} else {
		user, err := s.accounts.CurrentUser(r.Context(), session.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user.ActiveOrgID == nil {
			writeError(w, r, workspace.NotAuthenticated("", "No active organization"))
			return
		}
		orgID = *user.ActiveOrgID
	}

	doc, err := s.documents.Fetch(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		"orgId":   doc.OrgID,
		"title":   doc.Title,
		"content": doc.Content,
		"columns": doc.Columns,
		"rows":    doc.Rows,
	})
}

func (s *Server) upsertDocument(w http.ResponseWriter, r *http.Request) {
	var req upsertDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session := auth.SessionFromContext(r.Context())

	// Malformed or missing ids are reported by the service's own validation.
	if orgID, err := uuid.Parse(req.OrgID); err == nil {
		if _, err := s.requireMember(r, orgID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	doc, err := s.documents.Upsert(r.Context(), workspace.UpsertInput{
		OrganizationID: req.OrgID,
		Title:          req.Title,
		Content:        req.Content,
		Columns:        req.Columns,
		Rows:           req.Rows,
		AuthorID:       session.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		"message": "Table saved",
		"data":    doc,
	})
}
