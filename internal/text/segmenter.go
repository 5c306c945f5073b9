package text

import (
	"regexp"
	"strings"
)

const (
	DefaultMinChunkSize = 500
	DefaultMaxChunkSize = 2000
)

// RichTextNode is one node of a structured rich-text tree as delivered by the
// CMS: a type tag, an optional literal text value, and optional children.
type RichTextNode struct {
	NodeType string         `json:"nodeType"`
	Value    string         `json:"value"`
	Content  []RichTextNode `json:"content"`
}

// sentenceRe matches runs of non-terminator characters ending in '.', '!' or '?'.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// FlattenRichText converts a rich-text tree into plain text. Leaf text values
// are concatenated depth-first; each paragraph subtree is followed by a blank
// line so paragraph boundaries survive into SplitChunks.
func FlattenRichText(node *RichTextNode) string {
	if node == nil || len(node.Content) == 0 {
		return ""
	}
	var b strings.Builder
	for _, child := range node.Content {
		if child.NodeType == "text" && child.Value != "" {
			b.WriteString(child.Value)
		} else if len(child.Content) > 0 {
			b.WriteString(FlattenRichText(&child))
			if child.NodeType == "paragraph" {
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// SplitChunks splits plain text into chunks bounded by maxSize characters.
// Paragraphs are accumulated greedily; the max bound is soft: a chunk is only
// flushed early when it already exceeds minSize, so a chunk may run past
// maxSize while the accumulator is still small. Paragraphs that alone exceed
// maxSize are re-split at sentence boundaries, and a single sentence longer
// than maxSize is emitted whole.
func SplitChunks(text string, minSize, maxSize int) []string {
	if len(text) == 0 {
		return nil
	}

	var paragraphs []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	current := ""

	for _, paragraph := range paragraphs {
		if len(paragraph) > maxSize {
			if len(current) > 0 {
				chunks = append(chunks, current)
				current = ""
			}
			sentences := sentenceRe.FindAllString(paragraph, -1)
			if sentences == nil {
				sentences = []string{paragraph}
			}
			sentenceChunk := ""
			for _, sentence := range sentences {
				if len(sentenceChunk)+len(sentence) > maxSize && len(sentenceChunk) > 0 {
					chunks = append(chunks, sentenceChunk)
					sentenceChunk = ""
				}
				sentenceChunk += sentence
			}
			if len(sentenceChunk) > 0 {
				chunks = append(chunks, sentenceChunk)
			}
			continue
		}

		if len(current)+len(paragraph)+2 > maxSize {
			if len(current) > minSize {
				chunks = append(chunks, current)
				current = ""
			}
		}
		if len(current) > 0 {
			current += "\n\n"
		}
		current += paragraph
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// Enrich prepends the metadata prefix lines used for every stored chunk.
// Query-time enrichment must go through the same function so query embeddings
// are compared in the representation the chunks were embedded in.
func Enrich(title, ticker, articleType, body string) string {
	var lines []string
	if title != "" {
		lines = append(lines, "Title: "+title)
	}
	if ticker != "" {
		lines = append(lines, "Ticker: "+ticker)
	}
	if articleType != "" {
		lines = append(lines, "Article Type: "+articleType)
	}
	if len(lines) == 0 {
		return body
	}
	return strings.Join(lines, "\n") + "\n\n" + body
}
