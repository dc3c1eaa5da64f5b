package api

import "github.com/starford/notestore/internal/models"

// NoteRequest is the body of POST /notes and PATCH /notes/{id}. Omitted
// fields keep their current (or default) value; "tags": [] clears the tags.
type NoteRequest = models.NoteProps

// FolderRequest is the optional body of PUT /folders.
type FolderRequest = models.FolderProps

// TagRequest is the optional body of PUT /tags/{name}.
type TagRequest = models.TagProps

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []*models.Note `json:"notes" validate:"required"`
}

// FolderListResponse wraps folder listings.
type FolderListResponse struct {
	Folders []*models.Folder `json:"folders" validate:"required"`
}

// TagListResponse wraps tag listings.
type TagListResponse struct {
	Tags []*models.Tag `json:"tags" validate:"required"`
}

func noteList(notes []*models.Note) NoteListResponse {
	if notes == nil {
		notes = []*models.Note{}
	}
	return NoteListResponse{Notes: notes}
}
