package models

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a document that has never been saved.
const DefaultTitle = "Untitled Workspace"

// Column is a user-defined column definition. InputType is kept as a plain
// string so documents written with newer input types still round-trip.
type Column struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	InputType string   `json:"inputType"`
	Options   []string `json:"options,omitempty"`
}

// Row is a single record. Values is keyed by column key.
type Row struct {
	ID     string         `json:"id"`
	Values map[string]any `json:"values"`
}

// Clone returns a copy of the row with its own values map.
func (r Row) Clone() Row {
	values := maps.Clone(r.Values)
	if values == nil {
		values = map[string]any{}
	}
	return Row{ID: r.ID, Values: values}
}

// DocumentPayload is the user-editable part of a table document.
type DocumentPayload struct {
	OrgID   uuid.UUID `json:"orgId"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Columns []Column  `json:"columns"`
	Rows    []Row     `json:"rows"`
}

// TableDocument is the single table owned by an organization.
type TableDocument struct {
	DocumentID uuid.UUID `json:"id"` // UUIDv7, zero for a document that was never stored
	OrgID      uuid.UUID `json:"orgId"`
	CreatedBy  uuid.UUID `json:"createdBy"`
	UpdatedBy  uuid.UUID `json:"updatedBy"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Columns    []Column  `json:"columns"`
	Rows       []Row     `json:"rows"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EmptyDocument returns the document an organization sees before its first save.
func EmptyDocument(orgID uuid.UUID) *TableDocument {
	return &TableDocument{
		OrgID:   orgID,
		Title:   DefaultTitle,
		Columns: []Column{},
		Rows:    []Row{},
	}
}

// Payload returns the editable fields of the document.
func (d *TableDocument) Payload() DocumentPayload {
	return DocumentPayload{
		OrgID:   d.OrgID,
		Title:   d.Title,
		Content: d.Content,
		Columns: CloneColumns(d.Columns),
		Rows:    CloneRows(d.Rows),
	}
}

// Clone returns a deep copy of the document.
func (d *TableDocument) Clone() *TableDocument {
	clone := *d
	clone.Columns = CloneColumns(d.Columns)
	clone.Rows = CloneRows(d.Rows)
	return &clone
}

// CloneColumns deep copies columns, including option lists. A nil input yields an empty slice.
func CloneColumns(columns []Column) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		c.Options = slices.Clone(c.Options)
		out[i] = c
	}
	return out
}

// CloneRows deep copies rows. A nil input yields an empty slice.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
