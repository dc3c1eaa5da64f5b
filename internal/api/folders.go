package api

import (
	"net/http"

	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

// ListFolders handles GET /api/folders.
//
//	@Summary		List every folder, ordered by pathname
//	@Tags			folders
//	@Produce		json
//	@Success		200	{object}	FolderListResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.ListAllFolders(r.Context())
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	if folders == nil {
		folders = []*models.Folder{}
	}
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: folders})
}

// ListFolderNotes handles GET /api/folders/notes?pathname=.
//
//	@Summary		List the notes directly in a folder, trashed included
//	@Tags			folders
//	@Produce		json
//	@Param			pathname	query		string	true	"Folder pathname"
//	@Success		200			{object}	NoteListResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/notes [get]
func (h *Handler) ListFolderNotes(w http.ResponseWriter, r *http.Request) {
	pathname := r.URL.Query().Get("pathname")
	if err := docid.ValidateFolderPathname(pathname); err != nil {
		writeError(w, "list folder notes", err)
		return
	}
	notes, err := h.svc.FindNotesByFolder(r.Context(), pathname)
	if err != nil {
		writeError(w, "list folder notes", err)
		return
	}
	writeJSON(w, http.StatusOK, noteList(notes))
}

// UpsertFolder handles PUT /api/folders?pathname=.
//
//	@Summary		Create a folder and its ancestors, or update its data
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			pathname	query		string			true	"Folder pathname"
//	@Param			body		body		FolderRequest	false	"Folder data"
//	@Success		200			{object}	models.Folder
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [put]
func (h *Handler) UpsertFolder(w http.ResponseWriter, r *http.Request) {
	var req *FolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	folder, err := h.svc.UpsertFolder(r.Context(), r.URL.Query().Get("pathname"), req)
	if err != nil {
		writeError(w, "upsert folder", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// RemoveFolder handles DELETE /api/folders?pathname=.
//
//	@Summary		Trash every note in a folder subtree, then remove the folders
//	@Tags			folders
//	@Param			pathname	query	string	true	"Folder pathname"
//	@Success		204			"Folder removed"
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [delete]
func (h *Handler) RemoveFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveFolderSubtree(r.Context(), r.URL.Query().Get("pathname")); err != nil {
		writeError(w, "remove folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
