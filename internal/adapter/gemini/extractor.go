package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tickerspark/archive/internal/contentmap"
	"tickerspark/archive/internal/retrieval"
)

const extractionModel = "gemini-2.0-flash"

// extractionPrompt forces a fixed two-line reply so the response can be
// parsed without another model call. Content type ids are appended at
// construction time from the mapping registry.
const extractionPrompt = `You are an entity extraction system for a financial research archive.
Given one or more search queries, identify:
1. Subject: the single company name or stock ticker the queries are about. If no specific company or ticker is mentioned, answer N/A.
2. Content Type: the one archive content type the queries ask for, chosen strictly from this list, or N/A if none applies: %s

Reply with exactly two lines and nothing else:
Subject: <value>
Content Type: <value>`

// Extractor pulls the subject company and desired content type out of free
// text queries using a small generative model.
type Extractor struct {
	client *genai.Client
	model  string
}

func NewExtractor(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Extractor, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Extractor{client: client, model: extractionModel}, nil
}

func (x *Extractor) Extract(ctx context.Context, query string) (retrieval.Entities, error) {
	model := x.client.GenerativeModel(x.model)
	model.SetTemperature(0)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(extractionPrompt, strings.Join(contentmap.TypeIDs(), ", ")))},
	}

	res, err := model.GenerateContent(ctx, genai.Text(query))
	if err != nil {
		return retrieval.Entities{}, err
	}

	return parseEntities(responseText(res)), nil
}

func (x *Extractor) Close() error {
	return x.client.Close()
}

func responseText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func parseEntities(reply string) retrieval.Entities {
	var entities retrieval.Entities
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Subject:"):
			entities.Subject = cleanValue(strings.TrimPrefix(line, "Subject:"))
		case strings.HasPrefix(line, "Content Type:"):
			entities.ContentType = cleanValue(strings.TrimPrefix(line, "Content Type:"))
		}
	}
	// The model can only pick from the known list, but guard anyway.
	if entities.ContentType != "" {
		if _, ok := contentmap.Resolve(entities.ContentType); !ok {
			entities.ContentType = ""
		}
	}
	return entities
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "N/A") || strings.EqualFold(v, "None") {
		return ""
	}
	return v
}
