package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/cmd/tablectl/internal/script"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/schema"
	"github.com/wolfeidau/worktable/internal/table"
	"github.com/wolfeidau/worktable/internal/tablesync"
	"gopkg.in/yaml.v3"
)

type ShowCmd struct {
	Org    string `help:"Organization id or name, defaults to the active organization"`
	Format string `help:"Output format (table or yaml)" default:"table" enum:"table,yaml"`
}

func (s *ShowCmd) Run(ctx context.Context, globals *Globals) error {
	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	orgID, err := currentOrg(ctx, c, s.Org)
	if err != nil {
		return err
	}

	doc, err := c.FetchDocument(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	return render(globals.out(), s.Format, doc.Payload())
}

type ApplyCmd struct {
	File           string        `arg:"" help:"Edit script, - reads stdin"`
	Org            string        `help:"Organization id or name, defaults to the active organization"`
	DebounceWindow time.Duration `help:"Quiet period before edits are saved" default:"1s"`
	DryRun         bool          `help:"Print the result without saving"`
}

func (a *ApplyCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := a.readScript()
	if err != nil {
		return err
	}

	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	orgID, err := currentOrg(ctx, c, a.Org)
	if err != nil {
		return err
	}

	if a.DryRun {
		doc, err := c.FetchDocument(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to fetch document: %w", err)
		}
		payload := doc.Payload()
		tbl := table.New(payload.Columns, payload.Rows)
		if err := s.Apply(tbl); err != nil {
			return err
		}
		if s.Title != nil {
			payload.Title = *s.Title
		}
		if s.Content != nil {
			payload.Content = *s.Content
		}
		payload.Columns, payload.Rows = tbl.Columns(), tbl.Rows()
		return render(globals.out(), "table", payload)
	}

	syncer := tablesync.New(tablesync.Config{Remote: c, DebounceWindow: a.DebounceWindow})
	if err := syncer.Load(ctx, orgID); err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	// Edits that applied before a failing op are still saved on close.
	applyErr := syncer.Apply(s.Apply)
	if applyErr == nil && s.Title != nil {
		applyErr = syncer.SetTitle(*s.Title)
	}
	if applyErr == nil && s.Content != nil {
		applyErr = syncer.SetContent(*s.Content)
	}

	if err := syncer.Close(ctx); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if applyErr != nil {
		return applyErr
	}

	status := syncer.Status()
	log.Debug().Int("saves", status.Saves).Str("org_id", orgID.String()).Msg("Applied script")

	if status.Saves == 0 {
		globals.printf("No changes\n")
		return nil
	}
	globals.printf("Applied %d operations to %s\n", len(s.Ops), orgID)
	return nil
}

func (a *ApplyCmd) readScript() (*script.Script, error) {
	if a.File == "-" {
		return script.Parse(os.Stdin)
	}

	f, err := os.Open(a.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	return script.Parse(f)
}

type columnView struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Type    string   `yaml:"type"`
	Options []string `yaml:"options,omitempty"`
}

type rowView struct {
	ID     string         `yaml:"id"`
	Values map[string]any `yaml:"values"`
}

type documentView struct {
	OrgID   string       `yaml:"orgId"`
	Title   string       `yaml:"title"`
	Content string       `yaml:"content,omitempty"`
	Columns []columnView `yaml:"columns"`
	Rows    []rowView    `yaml:"rows"`
}

func render(w io.Writer, format string, doc models.DocumentPayload) error {
	if format == "yaml" {
		view := documentView{
			OrgID:   doc.OrgID.String(),
			Title:   doc.Title,
			Content: doc.Content,
			Columns: make([]columnView, 0, len(doc.Columns)),
			Rows:    make([]rowView, 0, len(doc.Rows)),
		}
		for _, c := range doc.Columns {
			view.Columns = append(view.Columns, columnView{Key: c.Key, Label: c.Label, Type: c.InputType, Options: c.Options})
		}
		for _, r := range doc.Rows {
			view.Rows = append(view.Rows, rowView{ID: r.ID, Values: r.Values})
		}

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "%s\n", doc.Title)
	if doc.Content != "" {
		fmt.Fprintf(w, "%s\n", doc.Content)
	}
	fmt.Fprintln(w)

	if len(doc.Columns) == 0 {
		fmt.Fprintln(w, "(no columns)")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	labels := make([]string, len(doc.Columns))
	for i, c := range doc.Columns {
		labels[i] = c.Label
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))

	for _, r := range doc.Rows {
		cells := make([]string, len(doc.Columns))
		for i, c := range doc.Columns {
			cells[i] = formatCell(c, r.Values[c.Key])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(c models.Column, v any) string {
	t := schema.Resolve(schema.InputType(c.InputType))
	v = schema.Coerce(t, v)

	if t == schema.Checkbox {
		if b, _ := v.(bool); b {
			return "[x]"
		}
		return "[ ]"
	}
	if v == nil {
		return ""
	}
	// Tabs and newlines would break the column layout.
	text := strings.NewReplacer("\t", " ", "\n", " ").Replace(fmt.Sprint(v))
	if t == schema.Select && text != "" && !schema.ValidOption(c.Options, v) {
		return text + " (?)"
	}
	return text
}
