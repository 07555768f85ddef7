package playlist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	queue     *Queue
	playlists *Playlists
	log       *slog.Logger
}

func NewServer(queue *Queue, playlists *Playlists, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queue:     queue,
		playlists: playlists,
		log:       logger,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/queue", s.handleGetQueue)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/queue", s.handleAddToQueue)
		r.Post("/queue/add", s.handleAddToQueue)
		r.Put("/queue/reorder", s.handleReorderQueue)
		r.Delete("/queue/{itemId}", s.handleRemoveFromQueue)

		r.Get("/playlists", s.handleListPlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Get("/playlists/{id}", s.handleGetPlaylist)
		r.Patch("/playlists/{id}", s.handleRenamePlaylist)
		r.Put("/playlists/{id}", s.handleRenamePlaylist)
		r.Delete("/playlists/{id}", s.handleDeletePlaylist)

		r.Post("/playlists/{id}/videos", s.handleAddVideo)
		r.Put("/playlists/{id}/videos/reorder", s.handleMoveVideo)
		r.Delete("/playlists/{id}/videos/{itemId}", s.handleRemoveVideo)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "queue-service",
	})
}
