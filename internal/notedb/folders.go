package notedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

// GetFolder returns the folder at pathname, or nil if it does not exist.
func (db *DB) GetFolder(ctx context.Context, pathname string) (*models.Folder, error) {
	d, err := db.store.Get(ctx, docid.FolderID(pathname))
	if err != nil || d == nil {
		return nil, err
	}
	return decodeFolder(d)
}

// UpsertFolder makes sure the folder at pathname and all its ancestors exist.
//
// With nil props an existing folder is returned untouched. Otherwise props
// are merged onto the existing (or a new) folder and written.
func (db *DB) UpsertFolder(ctx context.Context, pathname string, props *models.FolderProps) (*models.Folder, error) {
	if err := docid.ValidateFolderPathname(pathname); err != nil {
		return nil, err
	}
	if parent, ok := docid.ParentPathname(pathname); ok {
		if _, err := db.UpsertFolder(ctx, parent, nil); err != nil {
			return nil, err
		}
	}

	folder, err := db.GetFolder(ctx, pathname)
	if err != nil {
		return nil, err
	}
	if folder != nil && props == nil {
		return folder, nil
	}

	now := db.now()
	if folder == nil {
		folder = &models.Folder{
			ID:        docid.FolderID(pathname),
			Pathname:  pathname,
			Data:      map[string]any{},
			CreatedAt: now,
		}
	}
	if props != nil && props.Data != nil {
		folder.Data = maps.Clone(props.Data)
	}
	folder.UpdatedAt = now

	doc, err := encodeMeta(folder.ID, folder.Rev, models.KindFolder, metaBody{
		Data:      folder.Data,
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	rev, err := db.store.Put(ctx, doc)
	if err != nil {
		// A concurrent ensure created the same folder first; that satisfies this one.
		if props == nil && folder.Rev == "" && errors.Is(err, apperr.ErrConflict) {
			if existing, getErr := db.GetFolder(ctx, pathname); getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	folder.Rev = rev
	db.publish(EventFolderUpserted, folder.ID)
	return folder, nil
}

// ListAllFolders returns every folder ordered by pathname.
func (db *DB) ListAllFolders(ctx context.Context) ([]*models.Folder, error) {
	docs, err := db.store.ScanPrefix(ctx, docid.FolderPrefix)
	if err != nil {
		return nil, err
	}
	return decodeFolders(docs)
}

// ListFoldersByPathnames returns the folders that exist among pathnames.
func (db *DB) ListFoldersByPathnames(ctx context.Context, pathnames []string) ([]*models.Folder, error) {
	ids := make([]string, len(pathnames))
	for i, p := range pathnames {
		ids[i] = docid.FolderID(p)
	}
	docs, err := db.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return decodeFolders(docs)
}

// ListFolderSubtree returns the folder at pathname (when it exists) followed
// by all of its descendants.
func (db *DB) ListFolderSubtree(ctx context.Context, pathname string) ([]*models.Folder, error) {
	if err := docid.ValidateFolderPathname(pathname); err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	var self *models.Folder
	var descendants []*models.Folder
	g.Go(func() error {
		var err error
		self, err = db.GetFolder(gctx, pathname)
		return err
	})
	g.Go(func() error {
		start, end := docid.SubtreeRange(pathname)
		docs, err := db.store.Range(gctx, start, end)
		if err != nil {
			return err
		}
		for _, d := range docs {
			f, err := decodeFolder(d)
			if err != nil {
				return err
			}
			descendants = append(descendants, f)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.Folder, 0, len(descendants)+1)
	if self != nil {
		out = append(out, self)
	}
	return append(out, descendants...), nil
}

// RemoveFolderSubtree trashes every live note in the folder at pathname and
// its descendants, then deletes those folder documents. Notes stay in the
// trash; they are not purged.
func (db *DB) RemoveFolderSubtree(ctx context.Context, pathname string) error {
	if pathname == docid.RootPathname {
		return fmt.Errorf("%w: the root folder cannot be removed", apperr.ErrUnprocessable)
	}
	folders, err := db.ListFolderSubtree(ctx, pathname)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range folders {
		g.Go(func() error {
			return db.trashAllNotesInFolder(gctx, f.Pathname)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Children go before parents so the remaining folders always form a
	// closed tree.
	for _, level := range byDepthDesc(folders) {
		g, gctx = errgroup.WithContext(ctx)
		for _, f := range level {
			g.Go(func() error {
				if err := db.store.Remove(gctx, f.ID, f.Rev); err != nil {
					return err
				}
				db.publish(EventFolderRemoved, f.ID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	db.logger.Debug("notedb: folder subtree removed",
		slog.String("pathname", pathname),
		slog.Int("folders", len(folders)))
	return nil
}

func (db *DB) trashAllNotesInFolder(ctx context.Context, pathname string) error {
	notes, err := db.FindNotesByFolder(ctx, pathname)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range notes {
		if n.Trashed {
			continue
		}
		g.Go(func() error {
			_, err := db.TrashNote(gctx, n.ID)
			return err
		})
	}
	return g.Wait()
}

// byDepthDesc groups folders by pathname depth, deepest group first.
func byDepthDesc(folders []*models.Folder) [][]*models.Folder {
	levels := make(map[int][]*models.Folder)
	for _, f := range folders {
		d := strings.Count(f.Pathname, "/")
		levels[d] = append(levels[d], f)
	}
	depths := slices.Sorted(maps.Keys(levels))
	slices.Reverse(depths)
	out := make([][]*models.Folder, 0, len(depths))
	for _, d := range depths {
		out = append(out, levels[d])
	}
	return out
}
