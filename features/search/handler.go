package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tickerspark/archive/internal/middleware"
	"tickerspark/archive/internal/retrieval"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *retrieval.Service
}

func NewHandler(service *retrieval.Service) *Handler {
	return &Handler{service: service}
}

type searchRequest struct {
	Queries     []string `json:"queries"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

type searchResponse struct {
	Context string `json:"context"`
}

// Search accepts a set of query variations plus optional date and content
// type filters and returns a single assembled context string.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "At least one query is required", http.StatusBadRequest)
		return
	}

	retrievalReq := retrieval.Request{
		Queries:     req.Queries,
		ContentType: req.ContentType,
	}

	if req.StartDate != "" {
		t, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "start_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		retrievalReq.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "end_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		retrievalReq.EndDate = &t
	}

	result, err := h.service.Search(r.Context(), retrievalReq)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(searchResponse{Context: result}); err != nil {
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
