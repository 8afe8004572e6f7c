// Package chunker provides a word-window text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of words shared by consecutive chunks.
const DefaultChunkOverlap = domain.DefaultOverlap

// Processor splits document content into overlapping word windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Call Validate before use; Process refuses invalid parameters.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Validate reports whether the window advances on every step.
func (p *Processor) Validate() error {
	return domain.IndexSettings{ChunkSize: p.chunkSize, Overlap: p.overlap}.Validate()
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Words are whitespace-separated tokens; windows of chunkSize words start every
// chunkSize-overlap words until the start passes the last word, so the final
// window may be short.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(doc.Content)
	if len(words) == 0 {
		return nil, nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, (len(words)+step-1)/step)

	for start := 0; start < len(words); start += step {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Name, err)
		}

		end := start + p.chunkSize
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, domain.Chunk{
			Text: strings.Join(words[start:end], " "),
			Metadata: domain.ChunkMetadata{
				Source:     doc.Name,
				ChunkIndex: len(chunks),
				OwnerID:    doc.OwnerID,
			},
		})
	}

	return chunks, nil
}
