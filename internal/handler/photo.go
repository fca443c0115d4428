package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/storage"
)

// maxPhotoSize caps memory photo uploads at 10 MiB.
const maxPhotoSize = 10 << 20

type PhotoHandler struct {
	uploader *storage.Uploader
	logger   *slog.Logger
}

func NewPhotoHandler(uploader *storage.Uploader, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{uploader: uploader, logger: logger}
}

// Upload stores a photo body and returns its object key for use in reward
// memories. The body is the raw image; Content-Type selects the extension.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.uploader.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "photo storage not configured"})
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxPhotoSize)
	data, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "photo too large"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty body"})
		return
	}

	key, err := h.uploader.UploadPhoto(r.Context(), auth.FamilyID(r.Context()),
		r.Header.Get("Content-Type"), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		h.logger.Error("upload photo", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// Get streams a stored photo back to the client.
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.uploader.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "photo storage not configured"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key query parameter is required"})
		return
	}

	body, err := h.uploader.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "photo not found"})
		return
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream photo", "key", key, "error", err)
	}
}
