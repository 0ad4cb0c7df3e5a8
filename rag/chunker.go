// Package rag holds the retrieval pipeline pieces: the document chunker, the
// embedding cache abstraction, and the cached embedder that fronts the
// inference API.
package rag

import (
	"regexp"
	"strings"
)

// DefaultChunkSize is the default chunk budget in characters.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of trailing characters carried
// into the next chunk.
const DefaultChunkOverlap = 100

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Chunker splits document text into overlapping chunks on paragraph
// boundaries. Splitting is a pure function of the input text and the
// configured size and overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the chunk budget in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in characters.
func WithChunkOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split breaks text into chunks. Paragraphs accumulate into a running buffer;
// when the next paragraph would push the buffer past the chunk size, the
// buffer is emitted and the next chunk is seeded with its trailing overlap.
// A single paragraph longer than the budget is kept whole rather than cut
// mid-sentence, so chunks are not guaranteed to fit the budget.
func (c *Chunker) Split(text string) []string {
	paragraphs := paragraphSplit.Split(text, -1)

	var chunks []string
	var current strings.Builder

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph) > c.chunkSize {
			closed := current.String()
			chunks = append(chunks, closed)

			current.Reset()
			if len(closed) > c.overlap {
				current.WriteString(closed[len(closed)-c.overlap:])
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
