// Package owner provides a processor that tags chunks with the owner id
// encoded in the source filename.
package owner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// DefaultMarkers are the filename prefixes recognised out of the box.
var DefaultMarkers = []string{"owner", "cust"}

// Processor derives an owner id from filenames of the form
// <marker>_<id>[_anything].<ext> and stamps it on every chunk.
// Files without a recognised marker leave chunks untouched.
type Processor struct {
	markers []string
}

// New creates an owner processor. Empty markers use DefaultMarkers.
func New(markers ...string) *Processor {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return &Processor{markers: markers}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "owner"
}

// Process sets doc.OwnerID and each chunk's owner from the filename.
// An owner already present on the document wins.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc.OwnerID == nil {
		doc.OwnerID = domain.StringPtr(p.Derive(doc.Name))
	}
	if doc.OwnerID == nil {
		return chunks, nil
	}

	for i := range chunks {
		chunks[i].Metadata.OwnerID = doc.OwnerID
	}
	return chunks, nil
}

// Derive returns the owner id encoded in name, or "".
func (p *Processor) Derive(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return ""
	}
	for _, m := range p.markers {
		if strings.EqualFold(parts[0], m) {
			return parts[1]
		}
	}
	return ""
}
