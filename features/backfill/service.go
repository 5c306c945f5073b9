package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"tickerspark/archive/features/ingest"
	"tickerspark/archive/internal/contentmap"
)

// PageReport summarizes one backfill page. NextSkip is -1 once the archive
// has been walked to the end.
type PageReport struct {
	Processed      int    `json:"processed"`
	InsertedChunks int    `json:"insertedChunks"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	Total          int    `json:"total"`
	NextSkip       int    `json:"nextSkip"`
	Message        string `json:"message,omitempty"`
}

// Ingestor is the slice of the ingest service backfill drives.
type Ingestor interface {
	IngestEntry(ctx context.Context, entry *ingest.Entry) (ingest.Outcome, error)
}

type Service struct {
	client *Client
	ingest Ingestor
	logger *slog.Logger
}

func NewService(client *Client, ingestor Ingestor, logger *slog.Logger) *Service {
	return &Service{client: client, ingest: ingestor, logger: logger}
}

// RunPage ingests one page of historical entries. Re-running a page is safe:
// ingestion replaces chunks per entry instead of appending.
func (s *Service) RunPage(ctx context.Context, skip, limit int) (PageReport, error) {
	if !s.client.Configured() {
		return PageReport{}, fmt.Errorf("contentful delivery credentials are not configured")
	}

	page, err := s.client.FetchEntries(ctx, contentmap.TypeIDs(), skip, limit)
	if err != nil {
		return PageReport{}, err
	}

	report := PageReport{Total: page.Total}
	for i := range page.Items {
		entry := &page.Items[i]
		outcome, err := s.ingest.IngestEntry(ctx, entry)
		if err != nil {
			report.Failed++
			s.logger.ErrorContext(ctx, "backfill entry failed",
				"entry_id", entry.Sys.ID, "error", err)
			continue
		}
		report.Processed++
		if outcome.Action == ingest.ActionSkipped {
			report.Skipped++
		}
		report.InsertedChunks += outcome.Chunks
	}

	report.NextSkip = skip + len(page.Items)
	if report.NextSkip >= page.Total || len(page.Items) == 0 {
		report.NextSkip = -1
		report.Message = "backfill complete"
	}

	s.logger.InfoContext(ctx, "backfill page done",
		"skip", skip, "processed", report.Processed, "chunks", report.InsertedChunks,
		"failed", report.Failed, "next_skip", report.NextSkip)
	return report, nil
}
