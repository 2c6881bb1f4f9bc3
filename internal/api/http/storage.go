package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"cycle-backend/internal/logger"
	"cycle-backend/internal/storage"

	"github.com/gorilla/mux"
)

// storageHandler serves presigned URLs issued by the local-disk storage backend.
type storageHandler struct {
	files        storage.LocalFiles
	allowedTypes []string
}

// RegisterMockStorageRoutes registers the upload and download endpoints behind mock presigned URLs.
func RegisterMockStorageRoutes(router *mux.Router, files storage.LocalFiles, allowedTypes []string) {
	h := &storageHandler{files: files, allowedTypes: allowedTypes}
	router.HandleFunc("/upload/{token}", h.upload).Methods(http.MethodPut).Name("storage.upload")
	router.HandleFunc("/download", h.download).Methods(http.MethodGet).Name("storage.download")
}

func (h *storageHandler) upload(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(r.URL.Query().Get("key"))
	if err != nil {
		http.Error(w, "Missing or invalid key parameter", http.StatusBadRequest)
		return
	}

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !h.accepts(contentType) {
		http.Error(w, "Invalid content type", http.StatusUnsupportedMediaType)
		return
	}

	if err := h.files.SaveFile(key, r.Body); err != nil {
		logger.Error("Failed to save uploaded file", "key", key, "error", err)
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	// Mimic the S3 PUT response
	w.Header().Set("ETag", `"mock-etag-success"`)
	w.WriteHeader(http.StatusOK)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(r.URL.Query().Get("key"))
	if err != nil {
		http.Error(w, "Missing or invalid key parameter", http.StatusBadRequest)
		return
	}

	file, err := h.files.ReadFile(key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeFor(key))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream file", "key", key, "error", err)
	}
}

// accepts allows the configured photo types plus verification documents.
func (h *storageHandler) accepts(contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	if len(h.allowedTypes) == 0 {
		return strings.HasPrefix(contentType, "image/")
	}
	for _, t := range h.allowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
