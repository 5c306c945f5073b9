package backfill

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"tickerspark/archive/internal/middleware"
)

const (
	defaultLimit = 25
	maxLimit     = 100
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type runRequest struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Run processes a single page of the historical archive. Callers walk the
// archive by feeding nextSkip back in until it comes back as -1.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	req := runRequest{Limit: defaultLimit}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Skip < 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "skip must be non-negative", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}

	report, err := h.service.RunPage(r.Context(), req.Skip, req.Limit)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.Error("failed to encode response", "error", err)
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
