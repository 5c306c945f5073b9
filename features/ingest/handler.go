package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"tickerspark/archive/internal/middleware"
)

// Contentful webhook topics, delivered in the X-Contentful-Topic header.
const (
	topicHeader = "X-Contentful-Topic"

	eventPublish   = "ContentManagement.Entry.publish"
	eventCreate    = "ContentManagement.Entry.create"
	eventUnpublish = "ContentManagement.Entry.unpublish"
	eventArchive   = "ContentManagement.Entry.archive"
	eventDelete    = "ContentManagement.Entry.delete"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Webhook handles Contentful entry lifecycle notifications. Publish and
// create events (re)ingest the entry, unpublish, archive and delete events
// remove its chunks, and everything else is acknowledged untouched.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get(topicHeader)

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid webhook payload", http.StatusBadRequest)
		return
	}
	if entry.Sys.ID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Missing entry id", http.StatusBadRequest)
		return
	}

	var outcome Outcome
	var err error
	switch topic {
	case eventPublish, eventCreate:
		outcome, err = h.service.IngestEntry(r.Context(), &entry)
	case eventUnpublish, eventArchive, eventDelete:
		outcome, err = h.service.DeleteEntry(r.Context(), entry.Sys.ID)
	default:
		outcome = Outcome{Action: ActionSkipped, Reason: "ignored event: " + topic}
	}
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Outcome
	}{Success: true, Outcome: outcome})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
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
