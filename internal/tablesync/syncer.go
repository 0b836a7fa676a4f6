// Package tablesync keeps a locally edited table document in step with the
// server. Edits apply to local state immediately; a debounced autosave sends
// the whole document once edits go quiet.
package tablesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/table"
	"github.com/wolfeidau/worktable/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultDebounceWindow = time.Second
	DefaultSaveTimeout    = 10 * time.Second
)

var (
	ErrNotLoaded      = errors.New("document not loaded")
	ErrNoOrganization = errors.New("no active organization")
)

// Remote is the server side of the protocol.
type Remote interface {
	FetchDocument(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error)
	UpsertDocument(ctx context.Context, payload models.DocumentPayload) (*models.TableDocument, error)
	SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*models.User, error)
}

// Config configures a Syncer.
type Config struct {
	Remote Remote

	// DebounceWindow is the quiet period after the last edit before an autosave.
	// Default: 1s
	DebounceWindow time.Duration

	// SaveTimeout bounds a single autosave request.
	// Default: 10s
	SaveTimeout time.Duration
}

// Status describes the sync state of the local document.
type Status struct {
	OrgID       uuid.UUID
	Loaded      bool
	Dirty       bool
	Saving      bool
	LastError   error
	LastSavedAt time.Time
	Saves       int
}

// Syncer owns the local copy of one organization's document.
type Syncer struct {
	remote      Remote
	saveTimeout time.Duration
	debouncer   *Debouncer

	// opMu serialises remote calls so saves go out in edit order.
	opMu sync.Mutex

	mu           sync.Mutex
	orgID        uuid.UUID
	loaded       bool
	title        string
	content      string
	table        *table.Table
	version      uint64 // bumped on every local edit
	savedVersion uint64 // version the server last acknowledged
	epoch        uint64 // bumped whenever the local document is replaced
	saving       bool
	lastErr      error
	lastSavedAt  time.Time
	saves        int
}

// New creates a Syncer. Nothing is fetched until Load.
func New(cfg Config) *Syncer {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}

	s := &Syncer{
		remote:      cfg.Remote,
		saveTimeout: cfg.SaveTimeout,
	}
	s.debouncer = NewDebouncer(cfg.DebounceWindow, s.autosave)
	return s
}

// Load fetches the document for orgID and replaces local state with it.
// Loading the organization that is already loaded does nothing. Unsaved edits
// for a different loaded organization are saved first; if that save fails
// they are dropped. A fresh load is clean: it never schedules a save.
func (s *Syncer) Load(ctx context.Context, orgID uuid.UUID) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.load(ctx, orgID)
}

func (s *Syncer) load(ctx context.Context, orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return ErrNoOrganization
	}

	s.mu.Lock()
	if s.loaded && s.orgID == orgID {
		s.mu.Unlock()
		return nil
	}
	previous := s.orgID
	s.mu.Unlock()

	if err := s.flush(ctx); err != nil && !errors.Is(err, ErrNotLoaded) {
		log.Warn().Err(err).Str("org_id", previous.String()).Msg("Discarding unsaved edits before loading another organization")
	}

	doc, err := s.remote.FetchDocument(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	s.debouncer.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.orgID = orgID
	s.loaded = true
	s.title = doc.Title
	s.content = doc.Content
	s.table = table.New(doc.Columns, doc.Rows)
	s.version = 0
	s.savedVersion = 0
	s.lastErr = nil

	log.Debug().
		Str("org_id", orgID.String()).
		Int("columns", len(doc.Columns)).
		Int("rows", len(doc.Rows)).
		Msg("Loaded table document")

	return nil
}

// Apply runs fn against the local table. If fn changed the table, the
// document is marked dirty and an autosave is scheduled. Errors from fn are
// returned as is.
func (s *Syncer) Apply(fn func(t *table.Table) error) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	before := s.table.Version()
	err := fn(s.table)
	changed := s.table.Version() != before
	if changed {
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.debouncer.Trigger()
	}
	return err
}

// SetTitle updates the document title.
func (s *Syncer) SetTitle(title string) error {
	return s.setText(&s.title, title)
}

// SetContent updates the free-form document body.
func (s *Syncer) SetContent(content string) error {
	return s.setText(&s.content, content)
}

func (s *Syncer) setText(field *string, value string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	if *field == value {
		s.mu.Unlock()
		return nil
	}
	*field = value
	s.version++
	s.mu.Unlock()

	s.debouncer.Trigger()
	return nil
}

// Save sends the full local document now. On failure local state is kept
// as is and stays dirty, so the next edit retries.
func (s *Syncer) Save(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.save(ctx, "manual")
}

// Flush cancels a pending autosave and saves immediately if there are unsaved edits.
func (s *Syncer) Flush(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.flush(ctx)
}

func (s *Syncer) flush(ctx context.Context) error {
	s.debouncer.Cancel()
	if !s.Dirty() {
		return nil
	}
	return s.save(ctx, "flush")
}

func (s *Syncer) autosave() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	// The document may have been saved or replaced while waiting for opMu.
	if !s.Dirty() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	// Errors are recorded in Status; autosave never propagates them.
	_ = s.save(ctx, "autosave")
}

func (s *Syncer) save(ctx context.Context, trigger string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	payload := s.payloadLocked()
	version, epoch := s.version, s.epoch
	s.saving = true
	s.mu.Unlock()

	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("trigger", trigger))
	metrics.AutosaveTotal.Add(ctx, 1, attrs)

	_, err := s.remote.UpsertDocument(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false
	if epoch != s.epoch {
		// The document was replaced while the request was in flight.
		return err
	}

	if err != nil {
		s.lastErr = err
		metrics.AutosaveErrorsTotal.Add(ctx, 1, attrs)
		log.Warn().
			Err(err).
			Str("org_id", payload.OrgID.String()).
			Str("trigger", trigger).
			Msg("Failed to save table document")
		return fmt.Errorf("failed to save document: %w", err)
	}

	s.lastErr = nil
	s.saves++
	s.lastSavedAt = time.Now()
	if version > s.savedVersion {
		s.savedVersion = version
	}

	log.Debug().
		Str("org_id", payload.OrgID.String()).
		Str("trigger", trigger).
		Uint64("version", version).
		Msg("Saved table document")

	return nil
}

// SwitchOrganization makes orgID the active organization on the server and
// reloads local state from it. Unsaved edits for the current organization are
// flushed first. If the server rejects the switch, nothing changes locally.
func (s *Syncer) SwitchOrganization(ctx context.Context, orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return ErrNoOrganization
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.flush(ctx); err != nil && !errors.Is(err, ErrNotLoaded) {
		log.Warn().Err(err).Msg("Discarding unsaved edits before switching organization")
	}

	if _, err := s.remote.SwitchOrganization(ctx, orgID); err != nil {
		return fmt.Errorf("failed to switch organization: %w", err)
	}

	telemetry.GetMetrics().SyncOrgSwitchesTotal.Add(ctx, 1)

	s.debouncer.Cancel()
	s.mu.Lock()
	s.epoch++
	s.loaded = false
	s.orgID = orgID
	s.title = ""
	s.content = ""
	s.table = nil
	s.version = 0
	s.savedVersion = 0
	s.lastErr = nil
	s.mu.Unlock()

	log.Info().Str("org_id", orgID.String()).Msg("Switched organization")

	return s.load(ctx, orgID)
}

// Dirty reports whether there are edits the server has not acknowledged.
func (s *Syncer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && s.version != s.savedVersion
}

// Status returns the current sync state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		OrgID:       s.orgID,
		Loaded:      s.loaded,
		Dirty:       s.loaded && s.version != s.savedVersion,
		Saving:      s.saving,
		LastError:   s.lastErr,
		LastSavedAt: s.lastSavedAt,
		Saves:       s.saves,
	}
}

// Snapshot returns a copy of the local document.
func (s *Syncer) Snapshot() (models.DocumentPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return models.DocumentPayload{}, ErrNotLoaded
	}
	return s.payloadLocked(), nil
}

// Close flushes unsaved edits and stops autosaving.
func (s *Syncer) Close(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.flush(ctx)
	s.debouncer.Stop()
	if errors.Is(err, ErrNotLoaded) {
		return nil
	}
	return err
}

func (s *Syncer) payloadLocked() models.DocumentPayload {
	return models.DocumentPayload{
		OrgID:   s.orgID,
		Title:   s.title,
		Content: s.content,
		Columns: s.table.Columns(),
		Rows:    s.table.Rows(),
	}
}
