package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.CreateNote)
		r.Get("/{id}", h.GetNote)
		r.Patch("/{id}", h.UpdateNote)
		r.Delete("/{id}", h.PurgeNote)
		r.Post("/{id}/trash", h.TrashNote)
		r.Post("/{id}/untrash", h.UntrashNote)
	})

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", h.ListFolders)
		r.Put("/", h.UpsertFolder)
		r.Delete("/", h.RemoveFolder)
		r.Get("/notes", h.ListFolderNotes)
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.ListTags)
		r.Put("/{name}", h.UpsertTag)
		r.Delete("/{name}", h.RemoveTag)
		r.Get("/{name}/notes", h.ListTagNotes)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
