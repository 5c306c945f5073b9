package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"tickerspark/archive/internal/config"
	"tickerspark/archive/internal/contentmap"
	"tickerspark/archive/internal/text"
)

// ChunkRecord is one enriched chunk ready for storage. Records are inserted
// without a vector; the embedding worker fills that in later.
type ChunkRecord struct {
	ID           string
	Content      string
	DocumentType string
	SourceType   string
	SourceID     string
	PublishedAt  time.Time
	OwnerID      string
	Metadata     ChunkMetadata
}

type ChunkMetadata struct {
	Title           string
	Ticker          string
	Tickers         []string
	ContentTypeID   string
	AccessLevel     string
	PublicationDate time.Time
	ChunkIndex      int
	TotalChunks     int
}

// Outcome reports what ingestion did with an entry.
type Outcome struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
	Chunks int    `json:"chunks,omitempty"`
}

const (
	ActionIngested = "ingested"
	ActionSkipped  = "skipped"
	ActionDeleted  = "deleted"
)

// ChunkStore persists chunks keyed by their source entry.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []ChunkRecord) error
	DeleteBySourceID(ctx context.Context, sourceID string) error
}

// JobQueue enqueues chunk ids for the embedding worker.
type JobQueue interface {
	Send(ctx context.Context, documentIDs []string) error
}

// WakePublisher nudges the worker after new jobs land.
type WakePublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	store        ChunkStore
	jobs         JobQueue
	pub          WakePublisher
	ownerID      string
	minChunkSize int
	maxChunkSize int
	logger       *slog.Logger
}

func NewService(store ChunkStore, jobs JobQueue, pub WakePublisher, ownerID string, minChunkSize, maxChunkSize int, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		jobs:         jobs,
		pub:          pub,
		ownerID:      ownerID,
		minChunkSize: minChunkSize,
		maxChunkSize: maxChunkSize,
		logger:       logger,
	}
}

// IngestEntry replaces whatever chunks exist for the entry with a freshly
// segmented set and queues them for embedding. Existing chunks are always
// deleted first so re-ingesting the same entry never leaves duplicates, even
// when the new body is empty.
func (s *Service) IngestEntry(ctx context.Context, entry *Entry) (Outcome, error) {
	mapping, ok := contentmap.Resolve(entry.ContentTypeID())
	if !ok {
		s.logger.InfoContext(ctx, "skipping unmapped content type",
			"entry_id", entry.Sys.ID, "content_type", entry.ContentTypeID())
		return Outcome{Action: ActionSkipped, Reason: "unmapped content type"}, nil
	}

	if err := s.store.DeleteBySourceID(ctx, entry.Sys.ID); err != nil {
		return Outcome{}, fmt.Errorf("failed to delete existing chunks for %s: %w", entry.Sys.ID, err)
	}

	body := text.FlattenRichText(entry.FieldRichText(mapping.BodyField))
	if body == "" {
		s.logger.InfoContext(ctx, "entry has no body, old chunks removed",
			"entry_id", entry.Sys.ID)
		return Outcome{Action: ActionSkipped, Reason: "empty body"}, nil
	}

	title := entry.FieldString(mapping.Title)
	ticker := entry.FieldString(mapping.Ticker)
	tickers := entry.FieldStrings(mapping.Tickers)
	accessLevel := entry.FieldString(mapping.AccessLevel)
	publishedAt := entry.PublishTime()

	segments := text.SplitChunks(body, s.minChunkSize, s.maxChunkSize)

	records := make([]ChunkRecord, 0, len(segments))
	ids := make([]string, 0, len(segments))
	for i, segment := range segments {
		id := uuid.New().String()
		records = append(records, ChunkRecord{
			ID:           id,
			Content:      text.Enrich(title, ticker, entry.ContentTypeID(), segment),
			DocumentType: DocumentTypeArticle,
			SourceType:   SourceTypeContentful,
			SourceID:     entry.Sys.ID,
			PublishedAt:  publishedAt,
			OwnerID:      s.ownerID,
			Metadata: ChunkMetadata{
				Title:           title,
				Ticker:          ticker,
				Tickers:         tickers,
				ContentTypeID:   entry.ContentTypeID(),
				AccessLevel:     accessLevel,
				PublicationDate: publishedAt,
				ChunkIndex:      i + 1,
				TotalChunks:     len(segments),
			},
		})
		ids = append(ids, id)
	}

	if err := s.store.InsertChunks(ctx, records); err != nil {
		return Outcome{}, fmt.Errorf("failed to insert chunks for %s: %w", entry.Sys.ID, err)
	}

	if err := s.jobs.Send(ctx, ids); err != nil {
		return Outcome{}, fmt.Errorf("failed to enqueue embedding jobs for %s: %w", entry.Sys.ID, err)
	}

	if err := s.pub.Publish(config.TopicEmbedWake, []byte(entry.Sys.ID)); err != nil {
		// The scheduled worker run will still pick the jobs up.
		s.logger.WarnContext(ctx, "failed to publish wake message", "error", err)
	}

	s.logger.InfoContext(ctx, "entry ingested",
		"entry_id", entry.Sys.ID, "content_type", entry.ContentTypeID(), "chunks", len(records))
	return Outcome{Action: ActionIngested, Chunks: len(records)}, nil
}

// DeleteEntry removes every chunk belonging to the entry.
func (s *Service) DeleteEntry(ctx context.Context, sourceID string) (Outcome, error) {
	if err := s.store.DeleteBySourceID(ctx, sourceID); err != nil {
		return Outcome{}, fmt.Errorf("failed to delete chunks for %s: %w", sourceID, err)
	}
	s.logger.InfoContext(ctx, "entry chunks deleted", "entry_id", sourceID)
	return Outcome{Action: ActionDeleted}, nil
}
