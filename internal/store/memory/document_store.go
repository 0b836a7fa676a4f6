package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
)

// DocumentStore implements store.DocumentStore using in-memory storage.
// Documents are keyed by organization, so each organization holds at most one.
type DocumentStore struct {
	mu sync.RWMutex

	documents map[uuid.UUID]*models.TableDocument // org_id -> TableDocument
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[uuid.UUID]*models.TableDocument),
	}
}

// GetByOrganization returns the organization's document.
func (s *DocumentStore) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[orgID]
	if !exists {
		return nil, store.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// Upsert creates or replaces the organization's document.
func (s *DocumentStore) Upsert(ctx context.Context, doc *models.TableDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := doc.Clone()
	stored.UpdatedAt = now

	if existing, exists := s.documents[doc.OrgID]; exists {
		stored.DocumentID = existing.DocumentID
		stored.CreatedBy = existing.CreatedBy
		stored.CreatedAt = existing.CreatedAt
	} else {
		if stored.DocumentID == uuid.Nil {
			stored.DocumentID = uuid.Must(uuid.NewV7())
		}
		stored.CreatedAt = now
	}

	s.documents[doc.OrgID] = stored
	*doc = *stored.Clone()

	return nil
}
