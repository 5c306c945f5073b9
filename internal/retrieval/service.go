package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tickerspark/archive/internal/text"
)

// Similarity floors for the two query regimes. Queries that name a concrete
// entity can demand closer matches than broad thematic ones.
const (
	EntityThreshold  float32 = 0.35
	GenericThreshold float32 = 0.22

	// ResultsPerQuery caps each fan-out branch before deduplication.
	ResultsPerQuery = 10

	// NoResultsMessage is returned verbatim when every query comes back
	// empty, so callers can relay it instead of inventing an answer.
	NoResultsMessage = "No relevant TickerSpark analysis was found in the internal archives for this query."
)

// Request is one retrieval invocation over a set of query variations.
type Request struct {
	Queries     []string
	StartDate   *time.Time
	EndDate     *time.Time
	ContentType string
}

// Result is a single matched chunk.
type Result struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Title    string                 `json:"title,omitempty"`
	Distance float32                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Entities is what the extraction model found in the query text.
type Entities struct {
	Subject     string
	ContentType string
}

// SearchParams is a single vector search against the chunk store.
type SearchParams struct {
	Vector      []float32
	Threshold   float32
	Limit       int
	StartDate   *time.Time
	EndDate     *time.Time
	ContentType string
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type EntityExtractor interface {
	Extract(ctx context.Context, query string) (Entities, error)
}

type VectorStore interface {
	Search(ctx context.Context, params SearchParams) ([]Result, error)
}

type Service struct {
	embedder  Embedder
	extractor EntityExtractor
	store     VectorStore
	logger    *QueryLogger
}

func NewService(e Embedder, x EntityExtractor, s VectorStore, l *QueryLogger) *Service {
	return &Service{embedder: e, extractor: x, store: s, logger: l}
}

// Search runs every query variation concurrently against the chunk store and
// assembles a single context string. The threshold adapts to what entity
// extraction finds, and each query is enriched with the extracted subject so
// its embedding lives in the same space as the ingested chunks.
func (s *Service) Search(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	if len(req.Queries) == 0 {
		return "", fmt.Errorf("at least one query is required")
	}

	entities := s.extractEntities(ctx, req.Queries)
	threshold := GenericThreshold
	if entities.Subject != "" {
		threshold = EntityThreshold
	}

	// A caller-supplied content type filter wins over the extractor's guess,
	// so the embedded query text mirrors the chunks the filter admits.
	contentType := req.ContentType
	if contentType == "" {
		contentType = entities.ContentType
	}

	enriched := make([]string, len(req.Queries))
	for i, q := range req.Queries {
		enriched[i] = text.Enrich(entities.Subject, entities.Subject, contentType, q)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, enriched)
	if err != nil {
		return "", fmt.Errorf("failed to embed queries: %w", err)
	}
	if len(vectors) != len(req.Queries) {
		return "", fmt.Errorf("embedder returned %d vectors for %d queries", len(vectors), len(req.Queries))
	}

	// One slot per query keeps merged output in query order regardless of
	// which search finishes first.
	slots := make([][]Result, len(vectors))
	errs := make([]error, len(vectors))
	var wg sync.WaitGroup
	for i, vec := range vectors {
		wg.Add(1)
		go func(i int, vec []float32) {
			defer wg.Done()
			slots[i], errs[i] = s.store.Search(ctx, SearchParams{
				Vector:      vec,
				Threshold:   threshold,
				Limit:       ResultsPerQuery,
				StartDate:   req.StartDate,
				EndDate:     req.EndDate,
				ContentType: req.ContentType,
			})
		}(i, vec)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			slog.ErrorContext(ctx, "query branch failed", "query", req.Queries[i], "error", err)
		}
	}
	if failed == len(vectors) {
		return "", fmt.Errorf("all %d query branches failed", failed)
	}

	merged := dedupe(slots)

	if s.logger != nil {
		s.logger.Log(ctx, QueryLogEntry{
			Queries:          req.Queries,
			ExtractedSubject: entities.Subject,
			ContentType:      entities.ContentType,
			Threshold:        threshold,
			NumResults:       len(merged),
			Duration:         time.Since(start),
		})
	}

	if len(merged) == 0 {
		return NoResultsMessage, nil
	}
	return formatContext(merged), nil
}

// extractEntities is best effort. A failed extraction degrades to the
// generic threshold with unenriched queries rather than failing the search.
func (s *Service) extractEntities(ctx context.Context, queries []string) Entities {
	if s.extractor == nil {
		return Entities{}
	}
	entities, err := s.extractor.Extract(ctx, strings.Join(queries, "\n"))
	if err != nil {
		slog.WarnContext(ctx, "entity extraction failed", "error", err)
		return Entities{}
	}
	return entities
}

// dedupe flattens the per-query result slots, keeping the first occurrence
// of each chunk id.
func dedupe(slots [][]Result) []Result {
	seen := make(map[string]bool)
	var merged []Result
	for _, slot := range slots {
		for _, r := range slot {
			if r.ID != "" && seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	return merged
}

func formatContext(results []Result) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		source := r.Title
		if source == "" {
			source = "Internal Archive"
		}
		blocks[i] = fmt.Sprintf("Source: %s\nContent: %s", source, strings.TrimSpace(r.Content))
	}
	return "--- INTERNAL KNOWLEDGE BASE RESULTS ---\n" + strings.Join(blocks, "\n\n---\n\n")
}
