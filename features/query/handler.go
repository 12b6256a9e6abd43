// Package query exposes keyword search across the service's indexes.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"docgenie/apps/indexer/internal/adapter/azsearch"
	"docgenie/apps/indexer/internal/middleware"
)

const defaultTop = 5

// Searcher is the slice of the index service the query surface reads from.
type Searcher interface {
	ListIndexes(ctx context.Context) ([]string, error)
	Search(ctx context.Context, indexName, query string, top int) ([]azsearch.Hit, error)
}

type Handler struct {
	search Searcher
}

func NewHandler(search Searcher) *Handler {
	return &Handler{search: search}
}

type hitResponse struct {
	Index      string   `json:"index"`
	Score      float64  `json:"score"`
	DocType    string   `json:"doc_type"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	FileName   string   `json:"file_name"`
	Highlights []string `json:"highlights,omitempty"`
}

// Search handles GET /search?q=...&index=...&top=N. Without an index
// parameter it fans out across every index and merges results by score.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "q is required", http.StatusBadRequest)
		return
	}

	top := defaultTop
	if v := r.URL.Query().Get("top"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			top = parsed
		}
	}

	indexes := []string{}
	if name := r.URL.Query().Get("index"); name != "" {
		indexes = append(indexes, name)
	} else {
		names, err := h.search.ListIndexes(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list indexes", "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to list indexes", http.StatusInternalServerError)
			return
		}
		indexes = names
	}

	var merged []hitResponse
	for _, name := range indexes {
		hits, err := h.search.Search(ctx, name, q, top)
		if err != nil {
			slog.WarnContext(ctx, "search failed for index, skipping", "index", name, "error", err)
			continue
		}
		for _, hit := range hits {
			merged = append(merged, hitResponse{
				Index:      name,
				Score:      hit.Score,
				DocType:    hit.Document.DocType,
				Title:      hit.Document.Title,
				Content:    hit.Document.Content,
				FileName:   hit.Document.FileName,
				Highlights: hit.Highlights,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > top {
		merged = merged[:top]
	}
	if merged == nil {
		merged = []hitResponse{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": merged,
		"meta": map[string]int{"count": len(merged)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
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
