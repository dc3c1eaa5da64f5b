package notedb

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

// RepairReport summarises one Repair pass.
type RepairReport struct {
	Notes          int      `json:"notes"`
	Folders        int      `json:"folders"`
	Tags           int      `json:"tags"`
	CreatedFolders []string `json:"createdFolders"`
	CreatedTags    []string `json:"createdTags"`
	// Skipped lists referenced names that can never be materialized
	// because they fail validation.
	Skipped []string `json:"skipped,omitempty"`
}

// Changed reports whether the pass wrote anything.
func (r *RepairReport) Changed() bool {
	return len(r.CreatedFolders) > 0 || len(r.CreatedTags) > 0
}

// LogAttrs returns the report as log attributes.
func (r *RepairReport) LogAttrs() []any {
	return []any{
		slog.Int("notes", r.Notes),
		slog.Int("folders", r.Folders),
		slog.Int("tags", r.Tags),
		slog.Any("created_folders", r.CreatedFolders),
		slog.Any("created_tags", r.CreatedTags),
		slog.Any("skipped", r.Skipped),
	}
}

// Repair scans every document once and creates the root folder plus any
// folder or tag referenced by a live note but missing from the store.
// Running it on a consistent store writes nothing.
func (db *DB) Repair(ctx context.Context) (*RepairReport, error) {
	docs, err := db.store.AllDocs(ctx)
	if err != nil {
		return nil, err
	}

	folders := make(map[string]struct{})
	tags := make(map[string]struct{})
	var notes []*models.Note
	for _, d := range docs {
		switch d.Kind {
		case models.KindNote:
			n, err := decodeNote(d)
			if err != nil {
				db.logger.Warn("repair: skipping undecodable note",
					slog.String("id", d.ID),
					slog.String("error", err.Error()))
				continue
			}
			notes = append(notes, n)
		case models.KindFolder:
			folders[docid.FolderPathname(d.ID)] = struct{}{}
		case models.KindTag:
			tags[docid.TagName(d.ID)] = struct{}{}
		}
	}

	report := &RepairReport{
		Notes:   len(notes),
		Folders: len(folders),
		Tags:    len(tags),
	}
	missingFolders := make(map[string]struct{})
	missingTags := make(map[string]struct{})
	for _, n := range notes {
		if n.Trashed {
			continue
		}
		if _, ok := folders[n.FolderPathname]; !ok {
			missingFolders[n.FolderPathname] = struct{}{}
		}
		for _, t := range n.Tags {
			if _, ok := tags[t]; !ok {
				missingTags[t] = struct{}{}
			}
		}
	}
	// Broken folder chains: a folder whose parent is gone.
	for p := range folders {
		if parent, ok := docid.ParentPathname(p); ok {
			if _, ok := folders[parent]; !ok {
				missingFolders[parent] = struct{}{}
			}
		}
	}
	if _, ok := folders[docid.RootPathname]; !ok {
		missingFolders[docid.RootPathname] = struct{}{}
	}

	for p := range missingFolders {
		if err := docid.ValidateFolderPathname(p); err != nil {
			db.logger.Warn("repair: skipping invalid folder pathname", slog.String("pathname", p))
			report.Skipped = append(report.Skipped, docid.FolderID(p))
			continue
		}
		report.CreatedFolders = append(report.CreatedFolders, p)
	}
	for t := range missingTags {
		if err := docid.ValidateTagName(t); err != nil {
			db.logger.Warn("repair: skipping invalid tag name", slog.String("tag", t))
			report.Skipped = append(report.Skipped, docid.TagID(t))
			continue
		}
		report.CreatedTags = append(report.CreatedTags, t)
	}
	slices.Sort(report.CreatedFolders)
	slices.Sort(report.CreatedTags)
	slices.Sort(report.Skipped)

	// The root is always upserted; it is a no-op when present.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := db.UpsertFolder(gctx, docid.RootPathname, nil)
		return err
	})
	for _, p := range report.CreatedFolders {
		if p == docid.RootPathname {
			continue
		}
		g.Go(func() error {
			_, err := db.UpsertFolder(gctx, p, nil)
			return err
		})
	}
	for _, t := range report.CreatedTags {
		g.Go(func() error {
			_, err := db.UpsertTag(gctx, t, nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(report.CreatedFolders) > 0 || len(report.CreatedTags) > 0 {
		db.logger.Info("repair: backfilled missing documents",
			slog.Int("folders", len(report.CreatedFolders)),
			slog.Int("tags", len(report.CreatedTags)))
	} else {
		db.logger.Debug("repair: store consistent", slog.Int("notes", report.Notes))
	}
	return report, nil
}
