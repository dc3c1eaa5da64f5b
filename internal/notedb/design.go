package notedb

import (
	"context"

	"github.com/starford/notestore/internal/docstore"
	"github.com/starford/notestore/internal/models"
)

const (
	designID     = "_design/notes"
	viewByFolder = "by_folder"
	viewByTag    = "by_tag"
)

var notesDesign = docstore.Design{
	ID: designID,
	Views: []docstore.View{
		{
			Name: viewByFolder,
			Map:  `if kind(doc) == "note" { emit(doc.folderPathname) }`,
			Emit: func(doc *models.Document) []string {
				n := noteForIndex(doc)
				if n == nil {
					return nil
				}
				return []string{n.FolderPathname}
			},
		},
		{
			Name: viewByTag,
			Map:  `if kind(doc) == "note" { for tag in doc.tags { emit(tag) } }`,
			Emit: func(doc *models.Document) []string {
				n := noteForIndex(doc)
				if n == nil {
					return nil
				}
				return n.Tags
			},
		},
	},
}

func noteForIndex(doc *models.Document) *models.Note {
	if doc.Kind != models.KindNote {
		return nil
	}
	n, err := decodeNote(doc)
	if err != nil {
		return nil
	}
	return n
}

// EnsureIndexes installs or upgrades the by_folder and by_tag index
// definitions. It reports whether the stored definition was rewritten.
func (db *DB) EnsureIndexes(ctx context.Context) (bool, error) {
	return db.store.EnsureDesign(ctx, notesDesign)
}
