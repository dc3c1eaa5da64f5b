package notedb

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

// GetTag returns the tag named name, or nil if it does not exist.
func (db *DB) GetTag(ctx context.Context, name string) (*models.Tag, error) {
	d, err := db.store.Get(ctx, docid.TagID(name))
	if err != nil || d == nil {
		return nil, err
	}
	return decodeTag(d)
}

// UpsertTag makes sure the tag named name exists. With nil props an existing
// tag is returned untouched; otherwise props are merged and written.
func (db *DB) UpsertTag(ctx context.Context, name string, props *models.TagProps) (*models.Tag, error) {
	if err := docid.ValidateTagName(name); err != nil {
		return nil, err
	}
	tag, err := db.GetTag(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag != nil && props == nil {
		return tag, nil
	}

	now := db.now()
	if tag == nil {
		tag = &models.Tag{
			ID:        docid.TagID(name),
			Name:      name,
			Data:      map[string]any{},
			CreatedAt: now,
		}
	}
	if props != nil && props.Data != nil {
		tag.Data = maps.Clone(props.Data)
	}
	tag.UpdatedAt = now

	doc, err := encodeMeta(tag.ID, tag.Rev, models.KindTag, metaBody{
		Data:      tag.Data,
		CreatedAt: tag.CreatedAt,
		UpdatedAt: tag.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	rev, err := db.store.Put(ctx, doc)
	if err != nil {
		if props == nil && tag.Rev == "" && errors.Is(err, apperr.ErrConflict) {
			if existing, getErr := db.GetTag(ctx, name); getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	tag.Rev = rev
	db.publish(EventTagUpserted, tag.ID)
	return tag, nil
}

// ListAllTags returns every tag ordered by name.
func (db *DB) ListAllTags(ctx context.Context) ([]*models.Tag, error) {
	docs, err := db.store.ScanPrefix(ctx, docid.TagPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Tag, 0, len(docs))
	for _, d := range docs {
		t, err := decodeTag(d)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FindNotesByTag returns every note, trashed or not, carrying the tag.
func (db *DB) FindNotesByTag(ctx context.Context, name string) ([]*models.Note, error) {
	docs, err := db.store.Query(ctx, viewByTag, name)
	if err != nil {
		return nil, err
	}
	return decodeNotes(docs)
}

// RemoveTag detaches the tag from every note carrying it, one note update at
// a time, then deletes the tag document if present. A failure part way
// leaves the remaining notes tagged; running RemoveTag again finishes the job.
func (db *DB) RemoveTag(ctx context.Context, name string) error {
	if err := docid.ValidateTagName(name); err != nil {
		return err
	}
	notes, err := db.FindNotesByTag(ctx, name)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range notes {
		g.Go(func() error {
			rest := slices.DeleteFunc(slices.Clone(n.Tags), func(t string) bool { return t == name })
			_, err := db.UpdateNote(gctx, n.ID, models.NoteProps{Tags: rest})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tag, err := db.GetTag(ctx, name)
	if err != nil {
		return err
	}
	if tag != nil {
		if err := db.store.Remove(ctx, tag.ID, tag.Rev); err != nil {
			return err
		}
		db.publish(EventTagRemoved, tag.ID)
	}
	db.logger.Debug("notedb: tag removed",
		slog.String("tag", name),
		slog.Int("notes", len(notes)))
	return nil
}
