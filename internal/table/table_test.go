package table

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/schema"
)

func taskTable() *Table {
	return New(
		[]models.Column{{Key: "task", Label: "Task", InputType: "text"}},
		[]models.Row{{ID: "r1", Values: map[string]any{"task": "draft plan"}}},
	)
}

func columnKeys(t *Table) []string {
	var keys []string
	for _, c := range t.Columns() {
		keys = append(keys, c.Key)
	}
	return keys
}

func requireRowsMatchColumns(t *testing.T, tbl *Table) {
	t.Helper()
	want := columnKeys(tbl)
	slices.Sort(want)
	for _, r := range tbl.Rows() {
		got := slices.Sorted(maps.Keys(r.Values))
		require.Equal(t, want, got, "row %s", r.ID)
	}
}

func TestNew(t *testing.T) {
	t.Run("assigns ids to rows without one", func(t *testing.T) {
		tbl := New(nil, []models.Row{{Values: map[string]any{"a": 1}}, {ID: "keep"}})
		rows := tbl.Rows()
		require.Len(t, rows, 2)
		require.NotEmpty(t, rows[0].ID)
		require.Equal(t, "keep", rows[1].ID)
		require.NotNil(t, rows[1].Values)
	})

	t.Run("copies inputs", func(t *testing.T) {
		cols := []models.Column{{Key: "task", Label: "Task", InputType: "text"}}
		rows := []models.Row{{ID: "r1", Values: map[string]any{"task": "a"}}}
		tbl := New(cols, rows)

		cols[0].Label = "changed"
		rows[0].Values["task"] = "changed"

		col, err := tbl.Column("task")
		require.NoError(t, err)
		require.Equal(t, "Task", col.Label)
		row, err := tbl.Row("r1")
		require.NoError(t, err)
		require.Equal(t, "a", row.Values["task"])
		require.Zero(t, tbl.Version())
	})
}

func TestAddColumn(t *testing.T) {
	tbl := taskTable()

	col := tbl.AddColumn()
	require.Equal(t, NewColumnLabel, col.Label)
	require.Equal(t, string(schema.Text), col.InputType)
	require.NotEqual(t, "task", col.Key)

	row, err := tbl.Row("r1")
	require.NoError(t, err)
	require.Equal(t, "", row.Values[col.Key])
	require.Equal(t, "draft plan", row.Values["task"])
	require.Equal(t, uint64(1), tbl.Version())

	t.Run("keys are never reused", func(t *testing.T) {
		seen := map[string]bool{"task": true, col.Key: true}
		for range 20 {
			c := tbl.AddColumn()
			require.False(t, seen[c.Key])
			seen[c.Key] = true
			require.NoError(t, tbl.DeleteColumn(c.Key))
		}
	})
}

func TestRenameColumn(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		expected  string
		changed   bool
		expectErr error
		key       string
	}{
		{name: "renames", key: "task", label: "Todo", expected: "Todo", changed: true},
		{name: "trims whitespace", key: "task", label: "  Todo  ", expected: "Todo", changed: true},
		{name: "blank is a no-op", key: "task", label: "   ", expected: "Task"},
		{name: "empty is a no-op", key: "task", label: "", expected: "Task"},
		{name: "unknown key", key: "missing", label: "Todo", expected: "Task", expectErr: ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := taskTable()
			err := tbl.RenameColumn(tt.key, tt.label)
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
			} else {
				require.NoError(t, err)
			}

			col, err := tbl.Column("task")
			require.NoError(t, err)
			require.Equal(t, tt.expected, col.Label)
			require.Equal(t, tt.changed, tbl.Version() > 0)
		})
	}
}

func TestChangeColumnType(t *testing.T) {
	t.Run("select seeds placeholder options", func(t *testing.T) {
		tbl := taskTable()
		require.NoError(t, tbl.ChangeColumnType("task", schema.Select))

		col, err := tbl.Column("task")
		require.NoError(t, err)
		require.Equal(t, string(schema.Select), col.InputType)
		require.Equal(t, []string{"Option 1", "Option 2", "Option 3"}, col.Options)

		row, err := tbl.Row("r1")
		require.NoError(t, err)
		require.Equal(t, "draft plan", row.Values["task"], "stored values are not coerced")
	})

	t.Run("select keeps existing options", func(t *testing.T) {
		tbl := New([]models.Column{{Key: "s", Label: "S", InputType: "text", Options: []string{"todo", "done"}}}, nil)
		require.NoError(t, tbl.ChangeColumnType("s", schema.Select))
		col, err := tbl.Column("s")
		require.NoError(t, err)
		require.Equal(t, []string{"todo", "done"}, col.Options)
	})

	t.Run("checkbox leaves text values in place", func(t *testing.T) {
		tbl := taskTable()
		require.NoError(t, tbl.ChangeColumnType("task", schema.Checkbox))

		row, err := tbl.Row("r1")
		require.NoError(t, err)
		require.Equal(t, "draft plan", row.Values["task"])

		v, err := tbl.CellValue("r1", "task")
		require.NoError(t, err)
		require.Equal(t, false, v)
	})

	t.Run("invalid type is rejected", func(t *testing.T) {
		tbl := taskTable()
		err := tbl.ChangeColumnType("task", schema.InputType("rating"))
		require.ErrorIs(t, err, schema.ErrInvalidInputType)
		require.Zero(t, tbl.Version())
	})

	t.Run("unknown key", func(t *testing.T) {
		tbl := taskTable()
		require.ErrorIs(t, tbl.ChangeColumnType("missing", schema.Number), ErrColumnNotFound)
	})

	t.Run("same type is a no-op", func(t *testing.T) {
		tbl := taskTable()
		require.NoError(t, tbl.ChangeColumnType("task", schema.Text))
		require.Zero(t, tbl.Version())
	})
}

func TestSetColumnOptions(t *testing.T) {
	tbl := taskTable()
	require.NoError(t, tbl.SetColumnOptions("task", []string{"todo", " ", "done", "todo"}))

	col, err := tbl.Column("task")
	require.NoError(t, err)
	require.Equal(t, []string{"todo", "done"}, col.Options)
	require.Equal(t, uint64(1), tbl.Version())

	require.NoError(t, tbl.SetColumnOptions("task", []string{"todo", "done"}))
	require.Equal(t, uint64(1), tbl.Version())

	require.ErrorIs(t, tbl.SetColumnOptions("missing", nil), ErrColumnNotFound)
}

func TestDuplicateColumn(t *testing.T) {
	tbl := New(
		[]models.Column{
			{Key: "task", Label: "Task", InputType: "text"},
			{Key: "status", Label: "Status", InputType: "select", Options: []string{"todo", "done"}},
			{Key: "due", Label: "Due", InputType: "date"},
		},
		[]models.Row{{ID: "r1", Values: map[string]any{"task": "a", "status": "todo", "due": "2024-01-01"}}},
	)

	dup, err := tbl.DuplicateColumn("status")
	require.NoError(t, err)
	require.Equal(t, "Status Copy", dup.Label)
	require.Equal(t, "select", dup.InputType)
	require.Equal(t, []string{"todo", "done"}, dup.Options)
	require.NotEqual(t, "status", dup.Key)

	require.Equal(t, []string{"task", "status", dup.Key, "due"}, columnKeys(tbl))

	row, err := tbl.Row("r1")
	require.NoError(t, err)
	require.Equal(t, "", row.Values[dup.Key], "cell values are not copied")
	require.Equal(t, "todo", row.Values["status"])

	t.Run("options are independent", func(t *testing.T) {
		require.NoError(t, tbl.SetColumnOptions(dup.Key, []string{"x"}))
		src, err := tbl.Column("status")
		require.NoError(t, err)
		require.Equal(t, []string{"todo", "done"}, src.Options)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := tbl.DuplicateColumn("missing")
		require.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestDeleteColumn(t *testing.T) {
	t.Run("rejects the last column", func(t *testing.T) {
		tbl := taskTable()
		require.ErrorIs(t, tbl.DeleteColumn("task"), ErrLastColumn)
		require.Equal(t, []string{"task"}, columnKeys(tbl))
		row, err := tbl.Row("r1")
		require.NoError(t, err)
		require.Equal(t, "draft plan", row.Values["task"])
		require.Zero(t, tbl.Version())
	})

	t.Run("removes the key from every row", func(t *testing.T) {
		tbl := taskTable()
		added := tbl.AddColumn()
		tbl.AddRow()

		require.NoError(t, tbl.DeleteColumn("task"))
		require.Equal(t, []string{added.Key}, columnKeys(tbl))
		requireRowsMatchColumns(t, tbl)
	})

	t.Run("stored column that rows never received", func(t *testing.T) {
		// The status column arrived with the document; the row predates it.
		tbl := New(
			[]models.Column{
				{Key: "task", Label: "Task", InputType: "text"},
				{Key: "status", Label: "Status", InputType: "select", Options: []string{"todo", "done"}},
			},
			[]models.Row{{ID: "r1", Values: map[string]any{"task": "draft plan"}}},
		)

		require.NoError(t, tbl.DeleteColumn("task"))

		cols := tbl.Columns()
		require.Len(t, cols, 1)
		require.Equal(t, "status", cols[0].Key)

		row, err := tbl.Row("r1")
		require.NoError(t, err)
		require.NotContains(t, row.Values, "task")
		require.NotContains(t, row.Values, "status")
	})

	t.Run("unknown key", func(t *testing.T) {
		tbl := taskTable()
		tbl.AddColumn()
		require.ErrorIs(t, tbl.DeleteColumn("missing"), ErrColumnNotFound)
	})
}

func TestAddRow(t *testing.T) {
	tbl := New([]models.Column{
		{Key: "task", Label: "Task", InputType: "text"},
		{Key: "done", Label: "Done", InputType: "checkbox"},
		{Key: "points", Label: "Points", InputType: "number"},
		{Key: "status", Label: "Status", InputType: "select", Options: []string{"todo"}},
		{Key: "notes", Label: "Notes", InputType: "textarea"},
		{Key: "due", Label: "Due", InputType: "date"},
		{Key: "future", Label: "Future", InputType: "rating"},
	}, nil)

	row := tbl.AddRow()
	require.NotEmpty(t, row.ID)
	require.Equal(t, map[string]any{
		"task":   "",
		"done":   false,
		"points": 0,
		"status": "",
		"notes":  "",
		"due":    "",
		"future": "",
	}, row.Values)
	require.Equal(t, 1, tbl.Len())

	other := tbl.AddRow()
	require.NotEqual(t, row.ID, other.ID)
	requireRowsMatchColumns(t, tbl)
}

func TestDeleteRow(t *testing.T) {
	tbl := taskTable()
	second := tbl.AddRow()
	third := tbl.AddRow()

	require.NoError(t, tbl.DeleteRow(second.ID))
	require.Equal(t, 2, tbl.Len())

	first, err := tbl.RowAt(0)
	require.NoError(t, err)
	require.Equal(t, "r1", first.ID)
	last, err := tbl.RowAt(1)
	require.NoError(t, err)
	require.Equal(t, third.ID, last.ID)

	require.ErrorIs(t, tbl.DeleteRow(second.ID), ErrRowNotFound)

	require.NoError(t, tbl.DeleteRowAt(0))
	require.Equal(t, 1, tbl.Len())
	require.ErrorIs(t, tbl.DeleteRowAt(5), ErrRowNotFound)
	require.ErrorIs(t, tbl.DeleteRowAt(-1), ErrRowNotFound)
}

func TestEditCell(t *testing.T) {
	tbl := taskTable()
	tbl.AddColumn()

	require.NoError(t, tbl.EditCell("r1", "task", "ship it"))
	require.NoError(t, tbl.EditCell("r1", "task", 42))

	row, err := tbl.Row("r1")
	require.NoError(t, err)
	require.Equal(t, 42, row.Values["task"], "values are stored without type checks")

	require.ErrorIs(t, tbl.EditCell("missing", "task", "x"), ErrRowNotFound)
	require.ErrorIs(t, tbl.EditCell("r1", "missing", "x"), ErrColumnNotFound)
}

func TestAccessorsReturnCopies(t *testing.T) {
	tbl := taskTable()

	rows := tbl.Rows()
	rows[0].Values["task"] = "mutated"
	cols := tbl.Columns()
	cols[0].Label = "mutated"

	row, err := tbl.Row("r1")
	require.NoError(t, err)
	require.Equal(t, "draft plan", row.Values["task"])
	col, err := tbl.Column("task")
	require.NoError(t, err)
	require.Equal(t, "Task", col.Label)
}

func TestRowKeysTrackColumns(t *testing.T) {
	tbl := taskTable()

	a := tbl.AddColumn()
	requireRowsMatchColumns(t, tbl)
	tbl.AddRow()
	requireRowsMatchColumns(t, tbl)
	b, err := tbl.DuplicateColumn(a.Key)
	require.NoError(t, err)
	requireRowsMatchColumns(t, tbl)
	require.NoError(t, tbl.DeleteColumn("task"))
	requireRowsMatchColumns(t, tbl)
	tbl.AddRow()
	require.NoError(t, tbl.DeleteColumn(b.Key))
	requireRowsMatchColumns(t, tbl)
	require.Len(t, tbl.Columns(), 1)
}
