package source

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docgenie/apps/indexer/internal/middleware"
	"docgenie/apps/indexer/internal/pipeline"
)

type Handler struct {
	service       *Service
	documentDir   string
	transcriptDir string
}

func NewHandler(service *Service, documentDir, transcriptDir string) *Handler {
	return &Handler{service: service, documentDir: documentDir, transcriptDir: transcriptDir}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string             `json:"type"`
		Locator  string             `json:"locator"`
		Messages []pipeline.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	if req.Locator == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Locator is required", http.StatusBadRequest)
		return
	}
	if req.Type == "conversation" && len(req.Messages) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Messages are required for conversation sources", http.StatusBadRequest)
		return
	}

	src := &Source{
		Type:     req.Type,
		Locator:  req.Locator,
		Messages: req.Messages,
	}
	if err := h.service.Create(r.Context(), src); err != nil {
		if errors.Is(err, ErrDuplicate) {
			h.writeError(r.Context(), w, "CONFLICT", err.Error(), http.StatusConflict)
			return
		}
		slog.Error("operation failed", "error", err, "locator", req.Locator)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": src}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Upload stores a pushed document or transcript on disk and registers it as
// a source. PDF and markdown land in the document directory; plain-text
// files are treated as transcripts.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// 50 MB limit (enforced at reader level)
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	var typ, dir string
	switch ext {
	case ".pdf", ".md":
		typ, dir = "file", h.documentDir
	case ".txt", ".vtt":
		typ, dir = "transcript", h.transcriptDir
	default:
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create upload directory", "error", err, "path", filepath.Clean(dir))
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(dir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is constructed from UUID + sanitized basename, not user-controlled
	if err != nil {
		slog.Error("failed to create file", "error", err, "path", path)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	// Calculate hash while copying
	hash := sha256.New()
	mw := io.MultiWriter(dst, hash)
	if _, err := io.Copy(mw, file); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to write file", http.StatusInternalServerError)
		return
	}
	fileHash := fmt.Sprintf("%x", hash.Sum(nil))

	src, err := h.service.Upload(r.Context(), typ, filename, fileHash)
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.Warn("failed to clean up uploaded file", "error", removeErr, "path", filepath.Clean(path))
		}

		if errors.Is(err, ErrDuplicate) {
			h.writeError(r.Context(), w, "CONFLICT", err.Error(), http.StatusConflict)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": src}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return [] instead of null for empty list
	if sources == nil {
		sources = []Source{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": sources,
		"meta": map[string]int{"count": len(sources)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	src, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Source not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": src}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Source not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReSync(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.ReSync(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Source not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
