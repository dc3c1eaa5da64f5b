package api

import (
	"context"

	"github.com/starford/notestore/internal/models"
)

// Service is the subset of the note engine the API serves. *notedb.DB
// satisfies it.
type Service interface {
	GetNote(ctx context.Context, id string) (*models.Note, error)
	CreateNote(ctx context.Context, props models.NoteProps) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, props models.NoteProps) (*models.Note, error)
	TrashNote(ctx context.Context, id string) (*models.Note, error)
	UntrashNote(ctx context.Context, id string) (*models.Note, error)
	PurgeNote(ctx context.Context, id string) error
	FindNotesByFolder(ctx context.Context, pathname string) ([]*models.Note, error)

	UpsertFolder(ctx context.Context, pathname string, props *models.FolderProps) (*models.Folder, error)
	ListAllFolders(ctx context.Context) ([]*models.Folder, error)
	RemoveFolderSubtree(ctx context.Context, pathname string) error

	UpsertTag(ctx context.Context, name string, props *models.TagProps) (*models.Tag, error)
	ListAllTags(ctx context.Context) ([]*models.Tag, error)
	FindNotesByTag(ctx context.Context, name string) ([]*models.Note, error)
	RemoveTag(ctx context.Context, name string) error
}
