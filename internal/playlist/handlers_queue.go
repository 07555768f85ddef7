package playlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type reorderRequest struct {
	FromPosition int `json:"fromPosition"`
	ToPosition   int `json:"toPosition"`
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	snap, err := s.queue.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "get queue", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddToQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID    string `json:"videoId"`
		IsPriority bool   `json:"isPriority"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, item, err := s.queue.Add(r.Context(), body.VideoID, userFrom(r.Context()), body.IsPriority)
	if err != nil {
		s.writeServiceError(w, r, "add to queue", err)
		return
	}
	writeJSON(w, http.StatusCreated, addedItem{Item: item, Snapshot: snap})
}

func (s *Server) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	snap, err := s.queue.Remove(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		s.writeServiceError(w, r, "remove from queue", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReorderQueue(w http.ResponseWriter, r *http.Request) {
	var body reorderRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, err := s.queue.Reorder(r.Context(), body.FromPosition, body.ToPosition)
	if err != nil {
		s.writeServiceError(w, r, "reorder queue", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
