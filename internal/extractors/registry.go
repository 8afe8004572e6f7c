package extractors

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/extractors/pdf"
	"github.com/custodia-labs/replyguard/internal/extractors/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects extractors by lower-case file extension.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.TextExtractor)}
}

// NewDefaultRegistry registers the plain text and PDF extractors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(pdf.New())
	return r
}

// Register adds an extractor for each of its extensions.
func (r *Registry) Register(e driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// ForPath returns the extractor for the path's extension, case-insensitively.
func (r *Registry) ForPath(path string) (driven.TextExtractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
