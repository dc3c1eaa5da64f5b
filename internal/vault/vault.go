// Package vault imports a directory of Markdown files into the note store
// and exports the store back out. Directories map to folder pathnames; front
// matter carries the title, tags and note data.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/notedb"
	"github.com/starford/notestore/internal/parser"
	"github.com/starford/notestore/internal/storage"
)

// importConcurrency bounds the number of files written to the store at once.
const importConcurrency = 4

// ImportReport summarises an Import run.
type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// ExportReport summarises an Export run.
type ExportReport struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Trashed   int `json:"trashed"`
	Pruned    int `json:"pruned"`
}

// ExportOptions tunes Export.
type ExportOptions struct {
	// Prune deletes .md files in the vault that no exported note maps to.
	Prune bool
}

// Import reads every .md file in src and stores it as a note. A file whose
// front matter id names an existing note updates that note; any other file
// creates a new one. Files with an unusable folder or tag are skipped and
// listed in the report.
func Import(ctx context.Context, db *notedb.DB, src storage.Provider, logger *slog.Logger) (*ImportReport, error) {
	files, err := src.List("")
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	report := &ImportReport{}
	skip := func(p, reason string) {
		logger.Warn("import: skipping file", slog.String("path", p), slog.String("reason", reason))
		mu.Lock()
		report.Skipped = append(report.Skipped, p)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, f := range files {
		g.Go(func() error {
			created, err := importFile(gctx, db, src, f.Path)
			if errors.Is(err, apperr.ErrUnprocessable) {
				skip(f.Path, err.Error())
				return nil
			}
			if err != nil {
				return fmt.Errorf("import %s: %w", f.Path, err)
			}
			mu.Lock()
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("import: done",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", len(report.Skipped)))
	return report, nil
}

func importFile(ctx context.Context, db *notedb.DB, src storage.Provider, p string) (bool, error) {
	data, err := src.Read(p)
	if err != nil {
		return false, err
	}
	r, err := parser.Parse(data)
	if err != nil {
		return false, fmt.Errorf("%w: %w", apperr.ErrUnprocessable, err)
	}

	folder := FolderFor(p)
	title := r.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), ".md")
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	props := models.NoteProps{
		Title:          &title,
		Content:        &r.Body,
		FolderPathname: &folder,
		Tags:           tags,
		Data:           r.Data,
	}

	if r.ID != "" && docid.KindOf(r.ID) == models.KindNote {
		existing, err := db.GetNote(ctx, r.ID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			_, err := db.UpdateNote(ctx, r.ID, props)
			return false, err
		}
	}
	_, err = db.CreateNote(ctx, props)
	return err == nil, err
}

// Export writes every live note into dst, one file per note under the
// directory matching its folder. Files whose content would not change are
// left untouched.
func Export(ctx context.Context, db *notedb.DB, dst storage.Provider, opts ExportOptions, logger *slog.Logger) (*ExportReport, error) {
	existing, err := dst.List("")
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]string, len(existing))
	for _, f := range existing {
		onDisk[f.Path] = f.Checksum
	}

	folders, err := db.ListAllFolders(ctx)
	if err != nil {
		return nil, err
	}

	report := &ExportReport{}
	exported := make(map[string]struct{})
	for _, folder := range folders {
		notes, err := db.FindNotesByFolder(ctx, folder.Pathname)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			if n.Trashed {
				report.Trashed++
				continue
			}
			p := FileFor(n)
			exported[p] = struct{}{}

			content, err := parser.Render(n.ID, n.Title, n.Tags, n.Data, n.Content)
			if err != nil {
				return nil, err
			}
			if onDisk[p] == checksum.Sum(content) {
				report.Unchanged++
				continue
			}
			if err := dst.Write(p, content); err != nil {
				return nil, err
			}
			report.Written++
		}
	}

	if opts.Prune {
		for p := range onDisk {
			if _, ok := exported[p]; ok {
				continue
			}
			if err := dst.Delete(p); err != nil {
				return nil, err
			}
			report.Pruned++
		}
	}

	logger.Info("export: done",
		slog.Int("written", report.Written),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("pruned", report.Pruned))
	return report, nil
}

// FolderFor returns the folder pathname for a vault-relative file path.
func FolderFor(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return docid.RootPathname
	}
	return "/" + strings.Trim(dir, "/")
}

// FileFor returns the vault-relative path a note is exported to: its folder
// as a directory, then a slug of the title and the first eight characters
// of the note id.
func FileFor(n *models.Note) string {
	short := strings.TrimPrefix(n.ID, docid.NotePrefix)
	if len(short) > 8 {
		short = short[:8]
	}
	name := slugify(n.Title) + "-" + short + ".md"
	dir := strings.TrimPrefix(n.FolderPathname, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
