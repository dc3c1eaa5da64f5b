// Package notedb keeps notes, their implicit folders and tags, and trash
// state consistent on top of a revisioned document store.
//
// The store only offers per-document atomic writes, so every operation that
// introduces a reference (a note pointing at a folder or tag) first makes
// sure the referenced document exists, and only then writes the referencer.
// Folders and tags are upserted idempotently; a full-scan Repair backfills
// anything a partial write or an older engine left missing.
package notedb

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/starford/notestore/internal/docstore"
)

// Event types published after successful mutations.
const (
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteTrashed    = "note.trashed"
	EventNoteUntrashed  = "note.untrashed"
	EventNotePurged     = "note.purged"
	EventFolderUpserted = "folder.upserted"
	EventFolderRemoved  = "folder.removed"
	EventTagUpserted    = "tag.upserted"
	EventTagRemoved     = "tag.removed"
)

// Event describes a committed change to one document.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// EventFunc is called after each committed change. It must not block.
type EventFunc func(Event)

// DB is the note storage engine.
type DB struct {
	store   *docstore.Store
	logger  *slog.Logger
	now     func() time.Time
	onEvent EventFunc
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for repair and cascade diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// WithEventFunc registers a callback for committed changes.
func WithEventFunc(fn EventFunc) Option {
	return func(db *DB) {
		db.onEvent = fn
	}
}

// New returns an engine over store without touching it.
// Most callers want Open, which also installs indexes and runs Repair.
func New(store *docstore.Store, opts ...Option) *DB {
	db := &DB{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open returns an initialized engine over store.
func Open(ctx context.Context, store *docstore.Store, opts ...Option) (*DB, error) {
	db := New(store, opts...)
	if _, err := db.Init(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Init brings the index definitions up to date and repairs missing folders and tags.
func (db *DB) Init(ctx context.Context) (*RepairReport, error) {
	changed, err := db.EnsureIndexes(ctx)
	if err != nil {
		return nil, err
	}
	if changed {
		db.logger.Info("notedb: index definitions written", slog.String("design", designID))
	}
	return db.Repair(ctx)
}

func (db *DB) publish(typ, id string) {
	if db.onEvent != nil {
		db.onEvent(Event{Type: typ, ID: id})
	}
}
