package api

import (
	"net/http"

	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

// ListTags handles GET /api/tags.
//
//	@Summary		List every known tag
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListAllTags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	if tags == nil {
		tags = []*models.Tag{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// ListTagNotes handles GET /api/tags/{name}/notes.
//
//	@Summary		List the notes carrying a tag, trashed included
//	@Tags			tags
//	@Produce		json
//	@Param			name	path		string	true	"Tag name"
//	@Success		200		{object}	NoteListResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name}/notes [get]
func (h *Handler) ListTagNotes(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := docid.ValidateTagName(name); err != nil {
		writeError(w, "list tag notes", err)
		return
	}
	notes, err := h.svc.FindNotesByTag(r.Context(), name)
	if err != nil {
		writeError(w, "list tag notes", err)
		return
	}
	writeJSON(w, http.StatusOK, noteList(notes))
}

// UpsertTag handles PUT /api/tags/{name}.
//
//	@Summary		Create a tag or update its data
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string		true	"Tag name"
//	@Param			body	body		TagRequest	false	"Tag data"
//	@Success		200		{object}	models.Tag
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name} [put]
func (h *Handler) UpsertTag(w http.ResponseWriter, r *http.Request) {
	var req *TagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.svc.UpsertTag(r.Context(), urlParam(r, "name"), req)
	if err != nil {
		writeError(w, "upsert tag", err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// RemoveTag handles DELETE /api/tags/{name}.
//
//	@Summary		Detach a tag from every note and delete it
//	@Tags			tags
//	@Param			name	path	string	true	"Tag name"
//	@Success		204		"Tag removed"
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{name} [delete]
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveTag(r.Context(), urlParam(r, "name")); err != nil {
		writeError(w, "remove tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
