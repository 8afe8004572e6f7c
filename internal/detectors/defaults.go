package detectors

import (
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// ReversibleKinds is the priority order for tokenising inbound messages.
// Emails go first so phone patterns never see digits inside an address.
var ReversibleKinds = []domain.PIIKind{domain.PIIEmail, domain.PIIPhone}

// DocumentKinds is the order for redacting corpus documents before indexing.
// National ids go before phones so a 12-digit id is not split into a phone run.
var DocumentKinds = []domain.PIIKind{domain.PIIEmail, domain.PIINationalID, domain.PIIPhone}

// NewDefaultRegistry returns a registry with the built-in detectors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Email())
	r.Register(Phone())
	r.Register(NationalID())
	return r
}

// DefaultChains returns the reversible and document chains from the built-in registry.
func DefaultChains() (reversible, document []driven.Detector) {
	r := NewDefaultRegistry()
	// Built-in kinds are always registered.
	reversible, _ = r.Chain(ReversibleKinds...)
	document, _ = r.Chain(DocumentKinds...)
	return reversible, document
}
