package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/internal/models"
)

// ErrDocumentNotFound is returned when an organization has no stored document.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore defines the interface for table document storage.
// There is at most one document per organization.
type DocumentStore interface {
	// GetByOrganization returns the organization's document.
	// Returns ErrDocumentNotFound if the organization has never saved one.
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error)

	// Upsert atomically creates or replaces the organization's document.
	// DocumentID, CreatedBy and CreatedAt are kept from the existing document;
	// on insert they are taken from doc. doc is updated with the stored values.
	// Returns ErrOrganizationNotFound if the organization doesn't exist (where enforced).
	Upsert(ctx context.Context, doc *models.TableDocument) error
}
