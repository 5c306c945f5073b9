package ingest

import (
	"encoding/json"
	"time"

	"tickerspark/archive/internal/text"
)

const (
	DocumentTypeArticle  = "external_article"
	SourceTypeContentful = "contentful"
)

// Entry is a Contentful entry as delivered by webhooks and the Delivery API.
// Field values may be wrapped in a locale map depending on the delivery path,
// so raw JSON is kept and unwrapped lazily.
type Entry struct {
	Sys    EntrySys                   `json:"sys"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type EntrySys struct {
	ID          string         `json:"id"`
	ContentType ContentTypeRef `json:"contentType"`
	PublishedAt *time.Time     `json:"publishedAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type ContentTypeRef struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
}

// ContentTypeID returns the id of the entry's content model.
func (e *Entry) ContentTypeID() string {
	return e.Sys.ContentType.Sys.ID
}

// PublishTime returns the authoritative publication timestamp: the system
// publish time when present, otherwise the last update time.
func (e *Entry) PublishTime() time.Time {
	if e.Sys.PublishedAt != nil {
		return *e.Sys.PublishedAt
	}
	return e.Sys.UpdatedAt
}

// fieldRaw unwraps the default-locale envelope when present. Webhook payloads
// wrap every field value as {"en-US": ...} while CDA responses do not.
func (e *Entry) fieldRaw(name string) (json.RawMessage, bool) {
	raw, ok := e.Fields[name]
	if !ok || len(raw) == 0 {
		return nil, false
	}
	var locales map[string]json.RawMessage
	if err := json.Unmarshal(raw, &locales); err == nil {
		if v, ok := locales["en-US"]; ok {
			return v, true
		}
	}
	return raw, true
}

// FieldString returns the named field as a string, or "" when absent or of
// another type.
func (e *Entry) FieldString(name string) string {
	raw, ok := e.fieldRaw(name)
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// FieldStrings returns the named field as a string slice.
func (e *Entry) FieldStrings(name string) []string {
	raw, ok := e.fieldRaw(name)
	if !ok {
		return nil
	}
	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// FieldRichText returns the named field parsed as a rich-text document, or
// nil when the field is absent or malformed.
func (e *Entry) FieldRichText(name string) *text.RichTextNode {
	raw, ok := e.fieldRaw(name)
	if !ok {
		return nil
	}
	var node text.RichTextNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	return &node
}
