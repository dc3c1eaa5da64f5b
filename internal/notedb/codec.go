package notedb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

type noteBody struct {
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	FolderPathname string         `json:"folderPathname"`
	Tags           []string       `json:"tags"`
	Data           map[string]any `json:"data"`
	Trashed        bool           `json:"trashed"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// metaBody is the stored shape of both folders and tags.
type metaBody struct {
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func decodeNote(d *models.Document) (*models.Note, error) {
	var b noteBody
	if err := json.Unmarshal(d.Body, &b); err != nil {
		return nil, fmt.Errorf("notedb: decode note %s: %w", d.ID, err)
	}
	n := &models.Note{
		ID:             d.ID,
		Rev:            d.Rev,
		Title:          b.Title,
		Content:        b.Content,
		FolderPathname: b.FolderPathname,
		Tags:           b.Tags,
		Data:           b.Data,
		Trashed:        b.Trashed,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	return n, nil
}

func encodeNote(n *models.Note) (*models.Document, error) {
	body, err := json.Marshal(noteBody{
		Title:          n.Title,
		Content:        n.Content,
		FolderPathname: n.FolderPathname,
		Tags:           n.Tags,
		Data:           n.Data,
		Trashed:        n.Trashed,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("notedb: encode note %s: %w", n.ID, err)
	}
	return &models.Document{ID: n.ID, Rev: n.Rev, Kind: models.KindNote, Body: body}, nil
}

func decodeMeta(d *models.Document) (metaBody, error) {
	var b metaBody
	if err := json.Unmarshal(d.Body, &b); err != nil {
		return b, fmt.Errorf("notedb: decode %s: %w", d.ID, err)
	}
	if b.Data == nil {
		b.Data = map[string]any{}
	}
	return b, nil
}

func encodeMeta(id, rev string, kind models.Kind, b metaBody) (*models.Document, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("notedb: encode %s: %w", id, err)
	}
	return &models.Document{ID: id, Rev: rev, Kind: kind, Body: body}, nil
}

func decodeFolder(d *models.Document) (*models.Folder, error) {
	b, err := decodeMeta(d)
	if err != nil {
		return nil, err
	}
	return &models.Folder{
		ID:        d.ID,
		Rev:       d.Rev,
		Pathname:  docid.FolderPathname(d.ID),
		Data:      b.Data,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}, nil
}

func decodeTag(d *models.Document) (*models.Tag, error) {
	b, err := decodeMeta(d)
	if err != nil {
		return nil, err
	}
	return &models.Tag{
		ID:        d.ID,
		Rev:       d.Rev,
		Name:      docid.TagName(d.ID),
		Data:      b.Data,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}, nil
}

func decodeNotes(docs []*models.Document) ([]*models.Note, error) {
	out := make([]*models.Note, 0, len(docs))
	for _, d := range docs {
		n, err := decodeNote(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeFolders(docs []*models.Document) ([]*models.Folder, error) {
	out := make([]*models.Folder, 0, len(docs))
	for _, d := range docs {
		f, err := decodeFolder(d)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
