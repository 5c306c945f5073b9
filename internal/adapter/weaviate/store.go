package weaviate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"tickerspark/archive/features/ingest"
	"tickerspark/archive/internal/retrieval"
	"tickerspark/archive/internal/vector"
	"tickerspark/archive/internal/worker"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// InsertChunks writes chunk objects without vectors. An unvectorized object
// is invisible to nearVector search until the worker fills the vector in.
func (s *Store) InsertChunks(ctx context.Context, chunks []ingest.ChunkRecord) error {
	for _, chunk := range chunks {
		_, err := s.client.Data().Creator().
			WithClassName(vector.ClassName).
			WithID(chunk.ID).
			WithProperties(map[string]interface{}{
				"content":      chunk.Content,
				"documentType": chunk.DocumentType,
				"sourceType":   chunk.SourceType,
				"sourceId":     chunk.SourceID,
				"contentType":  chunk.Metadata.ContentTypeID,
				"title":        chunk.Metadata.Title,
				"ticker":       chunk.Metadata.Ticker,
				"tickers":      chunk.Metadata.Tickers,
				"accessLevel":  chunk.Metadata.AccessLevel,
				"publishedAt":  chunk.PublishedAt.Format(time.RFC3339),
				"chunkIndex":   chunk.Metadata.ChunkIndex,
				"totalChunks":  chunk.Metadata.TotalChunks,
				"ownerId":      chunk.OwnerID,
			}).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

// DeleteBySourceID removes every chunk belonging to one source entry.
func (s *Store) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"sourceId"}).
			WithOperator(filters.Equal).
			WithValueString(sourceID)).
		Do(ctx)
	return err
}

// GetContent fetches a chunk's enriched text. Returns worker.ErrChunkNotFound
// when the object no longer exists.
func (s *Store) GetContent(ctx context.Context, id string) (string, error) {
	objects, err := s.client.Data().ObjectsGetter().
		WithClassName(vector.ClassName).
		WithID(id).
		Do(ctx)
	if err != nil {
		var clientErr *fault.WeaviateClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode == 404 {
			return "", worker.ErrChunkNotFound
		}
		return "", err
	}
	if len(objects) == 0 {
		return "", worker.ErrChunkNotFound
	}

	props, ok := objects[0].Properties.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected properties shape for chunk %s", id)
	}
	content, _ := props["content"].(string)
	return content, nil
}

// SetEmbedding attaches a vector to an existing chunk, leaving its
// properties untouched.
func (s *Store) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.client.Data().Updater().
		WithMerge().
		WithClassName(vector.ClassName).
		WithID(id).
		WithProperties(map[string]interface{}{}).
		WithVector(vec).
		Do(ctx)
}

// Search runs a nearVector query with the similarity floor expressed as a
// Weaviate distance bound (distance = 1 - similarity).
func (s *Store) Search(ctx context.Context, params retrieval.SearchParams) ([]retrieval.Result, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(params.Vector).
		WithDistance(1 - params.Threshold)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "ticker"},
		{Name: "contentType"},
		{Name: "sourceId"},
		{Name: "publishedAt"},
		{Name: "chunkIndex"},
		{Name: "totalChunks"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	query := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(params.Limit).
		WithFields(fields...)

	if where := buildFilter(params); where != nil {
		query = query.WithWhere(where)
	}

	res, err := query.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.Result
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	chunks, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return results, nil
	}

	for _, c := range chunks {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		result := retrieval.Result{Metadata: make(map[string]interface{})}

		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if title, ok := props["title"].(string); ok {
			result.Title = title
			result.Metadata["title"] = title
		}
		for _, key := range []string{"ticker", "contentType", "sourceId", "publishedAt"} {
			if v, ok := props[key].(string); ok && v != "" {
				result.Metadata[key] = v
			}
		}
		for _, key := range []string{"chunkIndex", "totalChunks"} {
			if v, ok := props[key].(float64); ok {
				result.Metadata[key] = int(v)
			}
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				result.ID = id
			}
			if distance, ok := additional["distance"].(float64); ok {
				result.Distance = float32(distance)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

func buildFilter(params retrieval.SearchParams) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if params.StartDate != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"publishedAt"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueDate(*params.StartDate))
	}
	if params.EndDate != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"publishedAt"}).
			WithOperator(filters.LessThanEqual).
			WithValueDate(*params.EndDate))
	}
	if params.ContentType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"contentType"}).
			WithOperator(filters.Equal).
			WithValueString(params.ContentType))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}
