package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the Weaviate class holding archive chunks.
const ClassName = "ArchiveChunk"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks that the ArchiveChunk class exists with all expected
// properties and creates whatever is missing. Objects are inserted without a
// vector at ingestion time and only become reachable by nearVector once the
// embedding worker writes one.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "documentType",
			DataType: []string{"string"},
		},
		{
			Name:     "sourceType",
			DataType: []string{"string"},
		},
		{
			Name:     "sourceId",
			DataType: []string{"string"}, // CMS entry id (exact match)
		},
		{
			Name:     "contentType",
			DataType: []string{"string"},
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "ticker",
			DataType: []string{"string"},
		},
		{
			Name:     "tickers",
			DataType: []string{"string[]"},
		},
		{
			Name:     "accessLevel",
			DataType: []string{"string"},
		},
		{
			Name:     "publishedAt",
			DataType: []string{"date"},
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
		{
			Name:     "totalChunks",
			DataType: []string{"int"},
		},
		{
			Name:     "ownerId",
			DataType: []string{"string"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A metadata-enriched chunk of an externally-authored document",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
