// Package models defines the document types kept by the note store.
package models

import (
	"encoding/json"
	"time"
)

// Kind discriminates the documents sharing the store keyspace.
type Kind string

const (
	KindNote   Kind = "note"
	KindFolder Kind = "folder"
	KindTag    Kind = "tag"
	KindDesign Kind = "design"
	KindOther  Kind = ""
)

// Document is the raw envelope persisted by the document store.
type Document struct {
	ID   string          `json:"_id"`
	Rev  string          `json:"_rev,omitempty"`
	Kind Kind            `json:"-"`
	Body json.RawMessage `json:"-"`
}

// Note is a user note. Owned by the store; callers hold copies.
type Note struct {
	ID             string         `json:"_id"`
	Rev            string         `json:"_rev,omitempty"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	FolderPathname string         `json:"folderPathname"`
	Tags           []string       `json:"tags"`
	Data           map[string]any `json:"data"`
	Trashed        bool           `json:"trashed"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NoteProps is a partial set of editable note properties. Nil fields are left unchanged.
// A non-empty Rev must match the note's current revision for the update to apply.
type NoteProps struct {
	Rev            string         `json:"_rev,omitempty"`
	Title          *string        `json:"title,omitempty"`
	Content        *string        `json:"content,omitempty"`
	FolderPathname *string        `json:"folderPathname,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// HasTags reports whether the tag list is part of the change set.
func (p NoteProps) HasTags() bool {
	return p.Tags != nil
}

// Folder is a node of the folder tree. Pathname is recovered from the ID.
type Folder struct {
	ID        string         `json:"_id"`
	Rev       string         `json:"_rev,omitempty"`
	Pathname  string         `json:"pathname"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FolderProps holds editable folder properties.
type FolderProps struct {
	Data map[string]any `json:"data"`
}

// Tag is a known tag. Name is recovered from the ID.
type Tag struct {
	ID        string         `json:"_id"`
	Rev       string         `json:"_rev,omitempty"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TagProps holds editable tag properties.
type TagProps struct {
	Data map[string]any `json:"data"`
}
