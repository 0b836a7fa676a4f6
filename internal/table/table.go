// Package table implements the mutation engine for a dynamic-schema table:
// an ordered list of column definitions and an ordered list of rows keyed by
// column key. Every operation validates its input before touching state.
package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/schema"
)

const (
	// NewColumnLabel is the label given to columns created by AddColumn.
	NewColumnLabel = "New column"
	// CopySuffix is appended to the label of a duplicated column.
	CopySuffix = " Copy"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrRowNotFound    = errors.New("row not found")
	ErrLastColumn     = errors.New("cannot delete the last column")
)

// Table holds the in-memory state of a table document. It is not safe for
// concurrent use; callers serialise access.
type Table struct {
	columns []models.Column
	rows    []models.Row
	version uint64
}

// New builds a table from stored columns and rows. Inputs are copied, and
// rows without an identifier are given one.
func New(columns []models.Column, rows []models.Row) *Table {
	t := &Table{
		columns: models.CloneColumns(columns),
		rows:    models.CloneRows(rows),
	}
	for i := range t.rows {
		if t.rows[i].ID == "" {
			t.rows[i].ID = newRowID()
		}
	}
	return t
}

// Version increases by one for every operation that changed the table.
func (t *Table) Version() uint64 {
	return t.version
}

// Columns returns a copy of the column definitions in display order.
func (t *Table) Columns() []models.Column {
	return models.CloneColumns(t.columns)
}

// Rows returns a copy of the rows in display order.
func (t *Table) Rows() []models.Row {
	return models.CloneRows(t.rows)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Column returns the definition for key.
func (t *Table) Column(key string) (models.Column, error) {
	i := t.columnIndex(key)
	if i < 0 {
		return models.Column{}, fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}
	return models.CloneColumns(t.columns[i : i+1])[0], nil
}

// Row returns the row with the given identifier.
func (t *Table) Row(id string) (models.Row, error) {
	i := t.rowIndex(id)
	if i < 0 {
		return models.Row{}, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	return t.rows[i].Clone(), nil
}

// RowAt returns the row at position i.
func (t *Table) RowAt(i int) (models.Row, error) {
	if i < 0 || i >= len(t.rows) {
		return models.Row{}, fmt.Errorf("%w: index %d", ErrRowNotFound, i)
	}
	return t.rows[i].Clone(), nil
}

// CellValue returns the value of a cell as the column's editor would show it.
func (t *Table) CellValue(rowID, key string) (any, error) {
	ci := t.columnIndex(key)
	if ci < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}
	ri := t.rowIndex(rowID)
	if ri < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	return schema.Coerce(schema.InputType(t.columns[ci].InputType), t.rows[ri].Values[key]), nil
}

// AddColumn appends a text column with a fresh key and back-fills every row with "".
func (t *Table) AddColumn() models.Column {
	col := models.Column{
		Key:       newColumnKey(),
		Label:     NewColumnLabel,
		InputType: string(schema.Text),
	}
	t.columns = append(t.columns, col)
	for i := range t.rows {
		t.rows[i].Values[col.Key] = ""
	}
	t.version++
	return col
}

// RenameColumn sets the label of key. A blank label leaves the column unchanged.
func (t *Table) RenameColumn(key, label string) error {
	i := t.columnIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}
	label = strings.TrimSpace(label)
	if label == "" || label == t.columns[i].Label {
		return nil
	}
	t.columns[i].Label = label
	t.version++
	return nil
}

// ChangeColumnType sets the input type of key. Switching to select seeds
// placeholder options when the column has none. Cell values are left as stored.
func (t *Table) ChangeColumnType(key string, inputType schema.InputType) error {
	if !schema.Valid(inputType) {
		return fmt.Errorf("%w: %q", schema.ErrInvalidInputType, inputType)
	}
	i := t.columnIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}

	col := &t.columns[i]
	changed := col.InputType != string(inputType)
	col.InputType = string(inputType)
	if schema.RequiresOptions(inputType) && len(col.Options) == 0 {
		col.Options = schema.PlaceholderOptions()
		changed = true
	}
	if changed {
		t.version++
	}
	return nil
}

// SetColumnOptions replaces the option list of key. Blank and repeated
// options are dropped.
func (t *Table) SetColumnOptions(key string, options []string) error {
	i := t.columnIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}

	cleaned := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" || slices.Contains(cleaned, o) {
			continue
		}
		cleaned = append(cleaned, o)
	}
	if slices.Equal(cleaned, t.columns[i].Options) {
		return nil
	}
	t.columns[i].Options = cleaned
	t.version++
	return nil
}

// DuplicateColumn inserts a copy of key's definition directly after it. The
// copy gets a fresh key and empty cells; values are not copied.
func (t *Table) DuplicateColumn(key string) (models.Column, error) {
	i := t.columnIndex(key)
	if i < 0 {
		return models.Column{}, fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}

	src := t.columns[i]
	dup := models.Column{
		Key:       newColumnKey(),
		Label:     src.Label + CopySuffix,
		InputType: src.InputType,
		Options:   slices.Clone(src.Options),
	}
	t.columns = slices.Insert(t.columns, i+1, dup)
	for r := range t.rows {
		t.rows[r].Values[dup.Key] = ""
	}
	t.version++
	return dup, nil
}

// DeleteColumn removes key and its value from every row. The last remaining
// column cannot be deleted.
func (t *Table) DeleteColumn(key string) error {
	i := t.columnIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}
	if len(t.columns) <= 1 {
		return ErrLastColumn
	}

	t.columns = slices.Delete(t.columns, i, i+1)
	for r := range t.rows {
		delete(t.rows[r].Values, key)
	}
	t.version++
	return nil
}

// AddRow appends a row holding the default value for every column.
func (t *Table) AddRow() models.Row {
	row := models.Row{
		ID:     newRowID(),
		Values: make(map[string]any, len(t.columns)),
	}
	for _, c := range t.columns {
		row.Values[c.Key] = schema.DefaultValue(schema.InputType(c.InputType))
	}
	t.rows = append(t.rows, row)
	t.version++
	return row.Clone()
}

// DeleteRow removes the row with the given identifier.
func (t *Table) DeleteRow(id string) error {
	i := t.rowIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	t.rows = slices.Delete(t.rows, i, i+1)
	t.version++
	return nil
}

// DeleteRowAt removes the row at position i.
func (t *Table) DeleteRowAt(i int) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: index %d", ErrRowNotFound, i)
	}
	t.rows = slices.Delete(t.rows, i, i+1)
	t.version++
	return nil
}

// EditCell stores value as given. Values are not checked against the column type.
func (t *Table) EditCell(rowID, key string, value any) error {
	if t.columnIndex(key) < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, key)
	}
	i := t.rowIndex(rowID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	t.rows[i].Values[key] = value
	t.version++
	return nil
}

func (t *Table) columnIndex(key string) int {
	return slices.IndexFunc(t.columns, func(c models.Column) bool { return c.Key == key })
}

func (t *Table) rowIndex(id string) int {
	return slices.IndexFunc(t.rows, func(r models.Row) bool { return r.ID == id })
}

// Keys are UUIDv7 so a key is never handed out twice, including keys of deleted columns.
func newColumnKey() string {
	return "col_" + uuid.Must(uuid.NewV7()).String()
}

func newRowID() string {
	return uuid.Must(uuid.NewV7()).String()
}
