package notedb

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

const defaultNoteTitle = "Untitled"

// GetNote returns the note with the given id, or nil if it does not exist.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	d, err := db.store.Get(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	if d.Kind != models.KindNote {
		return nil, nil
	}
	return decodeNote(d)
}

// CreateNote stores a new note built from props and defaults. The note's
// folder and tags are upserted before the note itself is written.
func (db *DB) CreateNote(ctx context.Context, props models.NoteProps) (*models.Note, error) {
	now := db.now()
	note := &models.Note{
		ID:             docid.NewNoteID(),
		Title:          defaultNoteTitle,
		FolderPathname: docid.RootPathname,
		Tags:           []string{},
		Data:           map[string]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyProps(note, props)

	if err := validateRefs(&note.FolderPathname, note.Tags); err != nil {
		return nil, err
	}
	if err := db.ensureRefs(ctx, &note.FolderPathname, note.Tags); err != nil {
		return nil, err
	}
	if err := db.putNote(ctx, note); err != nil {
		return nil, err
	}
	db.publish(EventNoteCreated, note.ID)
	return note, nil
}

// UpdateNote merges props onto the note and stamps updatedAt. A changed
// folder or tag list is upserted first. Tags dropped from the list are left
// in place as known tags.
//
// When props.Rev is set it must match the note's current revision.
func (db *DB) UpdateNote(ctx context.Context, id string, props models.NoteProps) (*models.Note, error) {
	note, err := db.mustGetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if props.Rev != "" && props.Rev != note.Rev {
		return nil, fmt.Errorf("%w: note %s is at revision %q, not %q", apperr.ErrConflict, id, note.Rev, props.Rev)
	}

	tags := dedupe(props.Tags)
	if err := validateRefs(props.FolderPathname, tags); err != nil {
		return nil, err
	}
	if err := db.ensureRefs(ctx, props.FolderPathname, tags); err != nil {
		return nil, err
	}

	applyProps(note, props)
	note.UpdatedAt = db.now()
	if err := db.putNote(ctx, note); err != nil {
		return nil, err
	}
	db.publish(EventNoteUpdated, note.ID)
	return note, nil
}

// TrashNote moves the note to the trash. Folder and tag documents are not
// touched; an already trashed note is returned as is.
func (db *DB) TrashNote(ctx context.Context, id string) (*models.Note, error) {
	note, err := db.mustGetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Trashed {
		return note, nil
	}
	note.Trashed = true
	if err := db.putNote(ctx, note); err != nil {
		return nil, err
	}
	db.publish(EventNoteTrashed, note.ID)
	return note, nil
}

// UntrashNote restores the note from the trash, re-creating its folder and
// tags first in case they were removed while it was trashed.
func (db *DB) UntrashNote(ctx context.Context, id string) (*models.Note, error) {
	note, err := db.mustGetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateRefs(&note.FolderPathname, note.Tags); err != nil {
		return nil, err
	}
	if err := db.ensureRefs(ctx, &note.FolderPathname, note.Tags); err != nil {
		return nil, err
	}
	note.Trashed = false
	if err := db.putNote(ctx, note); err != nil {
		return nil, err
	}
	db.publish(EventNoteUntrashed, note.ID)
	return note, nil
}

// PurgeNote permanently deletes the note. Its folder and tags are kept.
func (db *DB) PurgeNote(ctx context.Context, id string) error {
	note, err := db.mustGetNote(ctx, id)
	if err != nil {
		return err
	}
	if err := db.store.Remove(ctx, note.ID, note.Rev); err != nil {
		return err
	}
	db.publish(EventNotePurged, note.ID)
	return nil
}

// FindNotesByFolder returns every note, trashed or not, directly in the folder.
func (db *DB) FindNotesByFolder(ctx context.Context, pathname string) ([]*models.Note, error) {
	docs, err := db.store.Query(ctx, viewByFolder, pathname)
	if err != nil {
		return nil, err
	}
	return decodeNotes(docs)
}

func (db *DB) mustGetNote(ctx context.Context, id string) (*models.Note, error) {
	note, err := db.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("%w: the note %q does not exist", apperr.ErrNotFound, id)
	}
	return note, nil
}

// ensureRefs upserts the folder (when non-nil) and every tag concurrently.
func (db *DB) ensureRefs(ctx context.Context, folder *string, tags []string) error {
	g, gctx := errgroup.WithContext(ctx)
	if folder != nil {
		g.Go(func() error {
			_, err := db.UpsertFolder(gctx, *folder, nil)
			return err
		})
	}
	for _, t := range tags {
		g.Go(func() error {
			_, err := db.UpsertTag(gctx, t, nil)
			return err
		})
	}
	return g.Wait()
}

func (db *DB) putNote(ctx context.Context, note *models.Note) error {
	doc, err := encodeNote(note)
	if err != nil {
		return err
	}
	rev, err := db.store.Put(ctx, doc)
	if err != nil {
		return err
	}
	note.Rev = rev
	return nil
}

// validateRefs rejects an invalid folder pathname or tag name before any
// write happens. A nil folder means the folder is not being changed.
func validateRefs(folder *string, tags []string) error {
	if folder != nil {
		if err := docid.ValidateFolderPathname(*folder); err != nil {
			return err
		}
	}
	for _, t := range tags {
		if err := docid.ValidateTagName(t); err != nil {
			return err
		}
	}
	return nil
}

func applyProps(note *models.Note, props models.NoteProps) {
	if props.Title != nil {
		note.Title = *props.Title
	}
	if props.Content != nil {
		note.Content = *props.Content
	}
	if props.FolderPathname != nil {
		note.FolderPathname = *props.FolderPathname
	}
	if props.HasTags() {
		note.Tags = dedupe(props.Tags)
	}
	if props.Data != nil {
		note.Data = maps.Clone(props.Data)
	}
}

// dedupe drops repeated tags, keeping the first occurrence. A nil list stays nil.
func dedupe(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
