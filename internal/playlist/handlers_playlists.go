package playlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	list, err := s.playlists.Mine(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, "list playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	c, err := s.playlists.Create(r.Context(), userFrom(r.Context()), body.Name)
	if err != nil {
		s.writeServiceError(w, r, "create playlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	d, err := s.playlists.Get(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, "get playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	c, err := s.playlists.Rename(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		s.writeServiceError(w, r, "rename playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, "delete playlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID string `json:"videoId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, item, err := s.playlists.AddVideo(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), body.VideoID)
	if err != nil {
		s.writeServiceError(w, r, "add video", err)
		return
	}
	writeJSON(w, http.StatusCreated, addedItem{Item: item, Snapshot: snap})
}

func (s *Server) handleRemoveVideo(w http.ResponseWriter, r *http.Request) {
	snap, err := s.playlists.RemoveVideo(r.Context(), userFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		s.writeServiceError(w, r, "remove video", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMoveVideo(w http.ResponseWriter, r *http.Request) {
	var body reorderRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, err := s.playlists.Move(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"),
		body.FromPosition, body.ToPosition)
	if err != nil {
		s.writeServiceError(w, r, "move video", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
