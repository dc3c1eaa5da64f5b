package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notestore/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns the decoded value of a path parameter. Clients may
// percent-encode ids and tag names.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeNote(w http.ResponseWriter, status int, n *models.Note) {
	w.Header().Set("ETag", `"`+n.Rev+`"`)
	writeJSON(w, status, n)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	if note == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeNote(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note; its folder and tags are created as needed
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	false	"Initial properties"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Rev = ""
	note, err := h.svc.CreateNote(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeNote(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Note id"
//	@Param			If-Match	header		string		false	"Expected revision"
//	@Param			body		body		NoteRequest	true	"Changed properties"
//	@Success		200			{object}	models.Note
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`); ifMatch != "" {
		req.Rev = ifMatch
	}
	note, err := h.svc.UpdateNote(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// TrashNote handles POST /api/notes/{id}/trash.
//
//	@Summary		Move a note to the trash
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/trash [post]
func (h *Handler) TrashNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.TrashNote(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "trash note", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// UntrashNote handles POST /api/notes/{id}/untrash.
//
//	@Summary		Restore a note from the trash, re-creating its folder and tags
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/untrash [post]
func (h *Handler) UntrashNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.UntrashNote(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "untrash note", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// PurgeNote handles DELETE /api/notes/{id}.
//
//	@Summary		Permanently delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) PurgeNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PurgeNote(r.Context(), urlParam(r, "id")); err != nil {
		writeError(w, "purge note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
