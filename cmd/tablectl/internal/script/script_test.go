package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/schema"
	"github.com/wolfeidau/worktable/internal/table"
)

const roadmap = `
title: Roadmap
content: Q3 plan
ops:
  - op: add_column
    label: Task
  - op: add_column
    label: Status
    type: select
    options: [Todo, Done]
  - op: add_column
    label: Estimate
    type: number
  - op: add_row
    values: {Task: ship it, Status: Todo, Estimate: 3}
  - op: add_row
    values: {Task: write docs}
  - op: edit_cell
    index: -1
    column: status
    value: Done
`

func TestParse(t *testing.T) {
	s, err := ParseBytes([]byte(roadmap))
	require.NoError(t, err)
	require.Equal(t, "Roadmap", *s.Title)
	require.Equal(t, "Q3 plan", *s.Content)
	require.Len(t, s.Ops, 6)
	require.Equal(t, []string{"Todo", "Done"}, s.Ops[1].Options)
	require.Equal(t, -1, *s.Ops[5].Index)

	t.Run("empty script", func(t *testing.T) {
		s, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		require.Nil(t, s.Title)
		require.Empty(t, s.Ops)
	})

	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{name: "unknown field", input: "ops:\n  - op: add_row\n    colour: red\n", errMsg: "colour"},
		{name: "unknown op", input: "ops:\n  - op: merge_rows\n", errMsg: `unknown op "merge_rows"`},
		{name: "missing op", input: "ops:\n  - column: Task\n", errMsg: "missing op"},
		{name: "bad type", input: "ops:\n  - op: retype_column\n    column: Task\n    type: color\n", errMsg: "invalid input type"},
		{name: "rename without label", input: "ops:\n  - op: rename_column\n    column: Task\n", errMsg: "needs label"},
		{name: "edit without row", input: "ops:\n  - op: edit_cell\n    column: Task\n", errMsg: "needs row or index"},
		{name: "delete without column", input: "ops:\n  - op: delete_column\n", errMsg: "needs column"},
		{name: "malformed yaml", input: "ops: [", errMsg: "invalid script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.input))
			require.ErrorIs(t, err, ErrInvalidScript)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestApply(t *testing.T) {
	s, err := ParseBytes([]byte(roadmap))
	require.NoError(t, err)

	tbl := table.New(nil, nil)
	require.NoError(t, s.Apply(tbl))

	cols := tbl.Columns()
	require.Len(t, cols, 3)
	require.Equal(t, "Task", cols[0].Label)
	require.Equal(t, string(schema.Text), cols[0].InputType)
	require.Equal(t, string(schema.Select), cols[1].InputType)
	require.Equal(t, []string{"Todo", "Done"}, cols[1].Options)
	require.Equal(t, string(schema.Number), cols[2].InputType)

	rows := tbl.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, "ship it", rows[0].Values[cols[0].Key])
	require.Equal(t, "Todo", rows[0].Values[cols[1].Key])
	require.Equal(t, 3, rows[0].Values[cols[2].Key])
	require.Equal(t, "write docs", rows[1].Values[cols[0].Key])
	require.Equal(t, "Done", rows[1].Values[cols[1].Key])
}

func TestApplyColumnAndRowOps(t *testing.T) {
	newTable := func() *table.Table {
		return table.New(
			[]models.Column{
				{Key: "task", Label: "Task", InputType: "text"},
				{Key: "done", Label: "Done", InputType: "checkbox"},
			},
			[]models.Row{
				{ID: "r1", Values: map[string]any{"task": "a", "done": false}},
				{ID: "r2", Values: map[string]any{"task": "b", "done": true}},
			},
		)
	}

	t.Run("rename and retype by key", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{
			{Op: OpRenameColumn, Column: "task", Label: "Title"},
			{Op: OpRetypeColumn, Column: "Title", Type: "textarea"},
		}}
		require.NoError(t, s.Apply(tbl))
		col, err := tbl.Column("task")
		require.NoError(t, err)
		require.Equal(t, "Title", col.Label)
		require.Equal(t, string(schema.Textarea), col.InputType)
	})

	t.Run("duplicate with label", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{{Op: OpDuplicateColumn, Column: "Task", Label: "Subtask"}}}
		require.NoError(t, s.Apply(tbl))
		cols := tbl.Columns()
		require.Len(t, cols, 3)
		require.Equal(t, "Subtask", cols[1].Label)
		require.Equal(t, "", tbl.Rows()[0].Values[cols[1].Key])
	})

	t.Run("duplicate without label keeps copy suffix", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{{Op: OpDuplicateColumn, Column: "Task"}}}
		require.NoError(t, s.Apply(tbl))
		require.Equal(t, "Task"+table.CopySuffix, tbl.Columns()[1].Label)
	})

	t.Run("delete row by id and index", func(t *testing.T) {
		tbl := newTable()
		zero := 0
		s := &Script{Ops: []Op{
			{Op: OpDeleteRow, Row: "r2"},
			{Op: OpDeleteRow, Index: &zero},
		}}
		require.NoError(t, s.Apply(tbl))
		require.Equal(t, 0, tbl.Len())
	})

	t.Run("set options and delete column", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{
			{Op: OpSetOptions, Column: "Task", Options: []string{"x", "y"}},
			{Op: OpDeleteColumn, Column: "Done"},
		}}
		require.NoError(t, s.Apply(tbl))
		cols := tbl.Columns()
		require.Len(t, cols, 1)
		require.Equal(t, []string{"x", "y"}, cols[0].Options)
		_, ok := tbl.Rows()[0].Values["done"]
		require.False(t, ok)
	})

	t.Run("stops at the first failing op", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{
			{Op: OpRenameColumn, Column: "task", Label: "Title"},
			{Op: OpEditCell, Row: "missing", Column: "Title", Value: "x"},
			{Op: OpAddRow},
		}}
		err := s.Apply(tbl)
		require.ErrorIs(t, err, table.ErrRowNotFound)
		require.ErrorContains(t, err, "op 2 (edit_cell)")
		require.Equal(t, 2, tbl.Len())
		col, err := tbl.Column("task")
		require.NoError(t, err)
		require.Equal(t, "Title", col.Label)
	})

	t.Run("unknown column", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{{Op: OpRenameColumn, Column: "Owner", Label: "x"}}}
		require.ErrorIs(t, s.Apply(tbl), table.ErrColumnNotFound)
	})

	t.Run("ambiguous label", func(t *testing.T) {
		tbl := newTable()
		s := &Script{Ops: []Op{
			{Op: OpDuplicateColumn, Column: "Task", Label: "Task"},
			{Op: OpRenameColumn, Column: "Task", Label: "x"},
		}}
		require.ErrorIs(t, s.Apply(tbl), ErrAmbiguous)
	})

	t.Run("index out of range", func(t *testing.T) {
		tbl := newTable()
		idx := 5
		s := &Script{Ops: []Op{{Op: OpDeleteRow, Index: &idx}}}
		require.ErrorIs(t, s.Apply(tbl), table.ErrRowNotFound)
	})
}
