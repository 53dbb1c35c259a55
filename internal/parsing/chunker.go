package parsing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/halit-vural/autorag/internal/models"
)

// DefaultChunkSize is the maximum number of characters per fragment.
const DefaultChunkSize = 3000

// ChunkDocument splits doc on paragraph boundaries into fragments of at most chunkSize characters.
// A document that already fits is returned unchanged.
func ChunkDocument(doc models.Document, chunkSize int) []models.Document {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if utf8.RuneCountInString(doc.Content) <= chunkSize {
		return []models.Document{doc}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			chunks = append(chunks, text)
		}
		current.Reset()
	}

	for _, paragraph := range strings.Split(doc.Content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		for _, piece := range splitLong(paragraph, chunkSize) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+2+utf8.RuneCountInString(piece) > chunkSize {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()

	docs := make([]models.Document, len(chunks))
	for i, text := range chunks {
		meta := make(map[string]any, len(doc.Meta)+2)
		for k, v := range doc.Meta {
			meta[k] = v
		}
		meta["chunk"] = i + 1
		meta["chunk_size"] = utf8.RuneCountInString(text)

		id := ""
		if doc.ID != "" {
			id = fmt.Sprintf("%s_%d", doc.ID, i+1)
		}
		docs[i] = models.Document{ID: id, Name: doc.Name, Content: text, Meta: meta}
	}
	return docs
}

// splitLong cuts a paragraph longer than size at word boundaries, or mid-word when a single word is too long.
func splitLong(paragraph string, size int) []string {
	if utf8.RuneCountInString(paragraph) <= size {
		return []string{paragraph}
	}

	var pieces []string
	var current []rune
	for _, word := range strings.Fields(paragraph) {
		w := []rune(word)
		for len(w) > size {
			if len(current) > 0 {
				pieces = append(pieces, string(current))
				current = nil
			}
			pieces = append(pieces, string(w[:size]))
			w = w[size:]
		}
		if len(current) > 0 && len(current)+1+len(w) > size {
			pieces = append(pieces, string(current))
			current = nil
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	if len(current) > 0 {
		pieces = append(pieces, string(current))
	}
	return pieces
}
