package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/store"
)

// DocumentStore implements store.DocumentStore using PostgreSQL.
// Column definitions and rows are stored as JSONB; the unique org_id
// constraint keeps one document per organization.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore creates a new PostgreSQL-backed document store.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{
		pool: pool,
	}
}

// GetByOrganization returns the organization's document.
func (s *DocumentStore) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error) {
	query := `
		SELECT
			document_id, org_id, created_by, updated_by,
			title, content, column_defs, row_data,
			created_at, updated_at
		FROM table_documents
		WHERE org_id = $1
	`

	var doc models.TableDocument
	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&doc.DocumentID,
		&doc.OrgID,
		&doc.CreatedBy,
		&doc.UpdatedBy,
		&doc.Title,
		&doc.Content,
		&doc.Columns,
		&doc.Rows,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// Upsert creates or replaces the organization's document in a single statement.
func (s *DocumentStore) Upsert(ctx context.Context, doc *models.TableDocument) error {
	query := `
		INSERT INTO table_documents (
			document_id, org_id, created_by, updated_by,
			title, content, column_defs, row_data,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
		)
		ON CONFLICT (org_id) DO UPDATE SET
			updated_by  = EXCLUDED.updated_by,
			title       = EXCLUDED.title,
			content     = EXCLUDED.content,
			column_defs = EXCLUDED.column_defs,
			row_data    = EXCLUDED.row_data,
			updated_at  = EXCLUDED.updated_at
		RETURNING document_id, created_by, created_at, updated_at
	`

	documentID := doc.DocumentID
	if documentID == uuid.Nil {
		documentID = uuid.Must(uuid.NewV7())
	}

	columns := models.CloneColumns(doc.Columns)
	rows := models.CloneRows(doc.Rows)

	err := s.pool.QueryRow(ctx, query,
		documentID,
		doc.OrgID,
		doc.CreatedBy,
		doc.UpdatedBy,
		doc.Title,
		doc.Content,
		columns,
		rows,
		time.Now(),
	).Scan(
		&doc.DocumentID,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", mapPostgresError(err))
	}

	doc.Columns = columns
	doc.Rows = rows

	log.Debug().
		Str("org_id", doc.OrgID.String()).
		Str("document_id", doc.DocumentID.String()).
		Int("columns", len(columns)).
		Int("rows", len(rows)).
		Msg("Upserted table document")

	return nil
}
