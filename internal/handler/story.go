package handler

import (
	"log/slog"
	"net/http"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

type StoryHandler struct {
	stories *store.StoryStore
	logger  *slog.Logger
}

func NewStoryHandler(stories *store.StoryStore, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{stories: stories, logger: logger}
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := parseID(limitStr)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = int(n)
	}

	entries, err := h.stories.List(auth.FamilyID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list story entries", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list story entries"})
		return
	}
	if entries == nil {
		entries = []model.StoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
