package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
	"github.com/wolfeidau/worktable/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UpsertInput is a full replacement of an organization's document.
// A nil Columns or Rows slice means the field was not supplied; an empty
// slice is a valid, empty table.
type UpsertInput struct {
	OrganizationID string
	Title          string
	Content        *string
	Columns        []models.Column
	Rows           []models.Row
	AuthorID       uuid.UUID
}

// DocumentService reads and replaces the per-organization table document.
type DocumentService struct {
	documents store.DocumentStore
}

// NewDocumentService creates a DocumentService backed by documents.
func NewDocumentService(documents store.DocumentStore) *DocumentService {
	return &DocumentService{documents: documents}
}

// Fetch returns the organization's document, or the default empty document
// if it has never been saved. It never writes.
func (s *DocumentService) Fetch(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error) {
	if orgID == uuid.Nil {
		return nil, InvalidIdentifier("orgId", "Organization ID is required")
	}

	doc, err := s.documents.GetByOrganization(ctx, orgID)
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		doc = models.EmptyDocument(orgID)
	case err != nil:
		log.Error().Err(err).Str("org_id", orgID.String()).Msg("Failed to fetch table document")
		return nil, Transient("Failed to fetch table data", err)
	}

	telemetry.GetMetrics().DocumentFetchesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("found", doc.DocumentID != uuid.Nil)))

	return doc, nil
}

// Upsert validates input and atomically creates or replaces the organization's
// document. The creator is recorded on the first save only; the author of
// every save is recorded as the last updater.
func (s *DocumentService) Upsert(ctx context.Context, in UpsertInput) (*models.TableDocument, error) {
	doc, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	m := telemetry.GetMetrics()

	err = s.documents.Upsert(ctx, doc)

	m.DocumentUpsertDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	m.DocumentUpsertsTotal.Add(ctx, 1)

	if err != nil {
		m.DocumentUpsertErrorsTotal.Add(ctx, 1)
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, NotFound("Organization not found")
		}
		log.Error().Err(err).Str("org_id", doc.OrgID.String()).Msg("Failed to upsert table document")
		return nil, Transient("Failed to save table data", err)
	}

	log.Debug().
		Str("org_id", doc.OrgID.String()).
		Str("document_id", doc.DocumentID.String()).
		Int("columns", len(doc.Columns)).
		Int("rows", len(doc.Rows)).
		Msg("Table document saved")

	return doc, nil
}

func (s *DocumentService) validate(in UpsertInput) (*models.TableDocument, error) {
	var missing []string
	if in.OrganizationID == "" {
		missing = append(missing, "orgId")
	}
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Columns == nil {
		missing = append(missing, "columns")
	}
	if in.Rows == nil {
		missing = append(missing, "rows")
	}
	if len(missing) > 0 {
		return nil, Validation(missing[0], "Missing required fields: "+strings.Join(missing, ", "))
	}

	orgID, err := uuid.Parse(in.OrganizationID)
	if err != nil || orgID == uuid.Nil {
		return nil, InvalidIdentifier("orgId", "Invalid organization ID")
	}

	seen := make(map[string]struct{}, len(in.Columns))
	for i, col := range in.Columns {
		if col.Key == "" {
			return nil, Validation("columns", fmt.Sprintf("Column %d has an empty key", i))
		}
		if _, dup := seen[col.Key]; dup {
			return nil, Validation("columns", fmt.Sprintf("Duplicate column key %q", col.Key))
		}
		seen[col.Key] = struct{}{}
	}

	content := ""
	if in.Content != nil {
		content = *in.Content
	}

	return &models.TableDocument{
		OrgID:     orgID,
		CreatedBy: in.AuthorID,
		UpdatedBy: in.AuthorID,
		Title:     in.Title,
		Content:   content,
		Columns:   models.CloneColumns(in.Columns),
		Rows:      models.CloneRows(in.Rows),
	}, nil
}
