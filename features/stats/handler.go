package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"docgenie/apps/indexer/internal/middleware"
)

type SourceRepo interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type IndexLister interface {
	ListIndexes(ctx context.Context) ([]string, error)
}

type Handler struct {
	sourceRepo SourceRepo
	indexes    IndexLister
}

func NewHandler(s SourceRepo, i IndexLister) *Handler {
	return &Handler{sourceRepo: s, indexes: i}
}

type StatsResponse struct {
	Sources  int            `json:"sources"`
	ByStatus map[string]int `json:"by_status"`
	Indexes  int            `json:"indexes"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.sourceRepo.CountByStatus(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count sources", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count sources", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	names, err := h.indexes.ListIndexes(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list indexes", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to list indexes", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Sources:  total,
		ByStatus: counts,
		Indexes:  len(names),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
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
