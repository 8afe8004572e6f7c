package detectors

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Registry holds detectors by kind.
type Registry struct {
	mu        sync.RWMutex
	detectors map[domain.PIIKind]driven.Detector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[domain.PIIKind]driven.Detector)}
}

// Register adds or replaces the detector for its kind.
func (r *Registry) Register(d driven.Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Kind()] = d
}

// Get returns the detector for kind.
func (r *Registry) Get(kind domain.PIIKind) (driven.Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[kind]
	return d, ok
}

// Chain returns detectors for kinds in the given order.
func (r *Registry) Chain(kinds ...domain.PIIKind) ([]driven.Detector, error) {
	chain := make([]driven.Detector, 0, len(kinds))
	for _, k := range kinds {
		d, ok := r.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: detector %q", domain.ErrUnsupportedType, k)
		}
		chain = append(chain, d)
	}
	return chain, nil
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.detectors)
}
