// Package script reads YAML edit scripts for tablectl apply and replays them
// against a table. Columns are referenced by key or by label, rows by
// identifier or by position.
//
//	title: Roadmap
//	ops:
//	  - op: add_column
//	    label: Status
//	    type: select
//	    options: [Todo, Done]
//	  - op: add_row
//	    values: {Status: Todo}
//	  - op: edit_cell
//	    index: -1
//	    column: Status
//	    value: Done
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/schema"
	"github.com/wolfeidau/worktable/internal/table"
	"gopkg.in/yaml.v3"
)

// Operation names.
const (
	OpAddColumn       = "add_column"
	OpRenameColumn    = "rename_column"
	OpRetypeColumn    = "retype_column"
	OpSetOptions      = "set_options"
	OpDuplicateColumn = "duplicate_column"
	OpDeleteColumn    = "delete_column"
	OpAddRow          = "add_row"
	OpDeleteRow       = "delete_row"
	OpEditCell        = "edit_cell"
)

var (
	ErrInvalidScript = errors.New("invalid script")
	ErrAmbiguous     = errors.New("ambiguous column label")
)

// Script is a parsed edit script. Title and Content are nil when the script
// leaves them alone.
type Script struct {
	Title   *string `yaml:"title"`
	Content *string `yaml:"content"`
	Ops     []Op    `yaml:"ops"`
}

// Op is one table operation.
type Op struct {
	Op      string         `yaml:"op"`
	Column  string         `yaml:"column"`
	Label   string         `yaml:"label"`
	Type    string         `yaml:"type"`
	Options []string       `yaml:"options"`
	Row     string         `yaml:"row"`
	Index   *int           `yaml:"index"`
	Value   any            `yaml:"value"`
	Values  map[string]any `yaml:"values"`
}

// Parse decodes and checks a script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	for i, op := range s.Ops {
		if err := op.check(); err != nil {
			return nil, fmt.Errorf("%w: op %d: %v", ErrInvalidScript, i+1, err)
		}
	}
	return &s, nil
}

// ParseBytes is Parse over an in-memory script.
func ParseBytes(data []byte) (*Script, error) {
	return Parse(bytes.NewReader(data))
}

func (o Op) check() error {
	needColumn := func() error {
		if o.Column == "" {
			return fmt.Errorf("%s needs column", o.Op)
		}
		return nil
	}
	needRow := func() error {
		if o.Row == "" && o.Index == nil {
			return fmt.Errorf("%s needs row or index", o.Op)
		}
		return nil
	}

	switch o.Op {
	case OpAddColumn:
		if o.Type != "" {
			if _, err := schema.Parse(o.Type); err != nil {
				return err
			}
		}
		return nil
	case OpRenameColumn:
		if o.Label == "" {
			return errors.New("rename_column needs label")
		}
		return needColumn()
	case OpRetypeColumn:
		if _, err := schema.Parse(o.Type); err != nil {
			return err
		}
		return needColumn()
	case OpSetOptions, OpDuplicateColumn, OpDeleteColumn:
		return needColumn()
	case OpAddRow:
		return nil
	case OpDeleteRow:
		return needRow()
	case OpEditCell:
		if err := needRow(); err != nil {
			return err
		}
		return needColumn()
	case "":
		return errors.New("missing op")
	default:
		return fmt.Errorf("unknown op %q", o.Op)
	}
}

// Apply replays the operations against t in order and stops at the first
// failure. Operations before the failure stay applied.
func (s *Script) Apply(t *table.Table) error {
	for i, op := range s.Ops {
		if err := op.apply(t); err != nil {
			return fmt.Errorf("op %d (%s): %w", i+1, op.Op, err)
		}
	}
	return nil
}

func (o Op) apply(t *table.Table) error {
	switch o.Op {
	case OpAddColumn:
		col := t.AddColumn()
		return configureColumn(t, col.Key, o)

	case OpRenameColumn:
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		return t.RenameColumn(key, o.Label)

	case OpRetypeColumn:
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		return t.ChangeColumnType(key, schema.InputType(o.Type))

	case OpSetOptions:
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		return t.SetColumnOptions(key, o.Options)

	case OpDuplicateColumn:
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		dup, err := t.DuplicateColumn(key)
		if err != nil {
			return err
		}
		return t.RenameColumn(dup.Key, o.Label)

	case OpDeleteColumn:
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		return t.DeleteColumn(key)

	case OpAddRow:
		row := t.AddRow()
		return setValues(t, row.ID, o.Values)

	case OpDeleteRow:
		id, err := resolveRow(t, o.Row, o.Index)
		if err != nil {
			return err
		}
		return t.DeleteRow(id)

	case OpEditCell:
		id, err := resolveRow(t, o.Row, o.Index)
		if err != nil {
			return err
		}
		key, err := resolveColumn(t, o.Column)
		if err != nil {
			return err
		}
		return t.EditCell(id, key, o.Value)
	}

	return fmt.Errorf("unknown op %q", o.Op)
}

func configureColumn(t *table.Table, key string, o Op) error {
	if err := t.RenameColumn(key, o.Label); err != nil {
		return err
	}
	if o.Type != "" {
		if err := t.ChangeColumnType(key, schema.InputType(o.Type)); err != nil {
			return err
		}
	}
	if len(o.Options) > 0 {
		return t.SetColumnOptions(key, o.Options)
	}
	return nil
}

func setValues(t *table.Table, rowID string, values map[string]any) error {
	for ref, v := range values {
		key, err := resolveColumn(t, ref)
		if err != nil {
			return err
		}
		if err := t.EditCell(rowID, key, v); err != nil {
			return err
		}
	}
	return nil
}

// resolveColumn matches ref against column keys first, then labels. A label
// shared by several columns must be referenced by key.
func resolveColumn(t *table.Table, ref string) (string, error) {
	columns := t.Columns()
	for _, c := range columns {
		if c.Key == ref {
			return c.Key, nil
		}
	}

	var matches []models.Column
	for _, c := range columns {
		if strings.EqualFold(c.Label, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", table.ErrColumnNotFound, ref)
	case 1:
		return matches[0].Key, nil
	default:
		return "", fmt.Errorf("%w: %q matches %d columns", ErrAmbiguous, ref, len(matches))
	}
}

// resolveRow returns id when set, otherwise the row at index. Negative
// indexes count from the end.
func resolveRow(t *table.Table, id string, index *int) (string, error) {
	if id != "" {
		return id, nil
	}
	i := *index
	if i < 0 {
		i += t.Len()
	}
	row, err := t.RowAt(i)
	if err != nil {
		return "", err
	}
	return row.ID, nil
}
