package driving

import "github.com/custodia-labs/replyguard/internal/core/domain"

// MaskingService tokenises and renders PII.
type MaskingService interface {
	// Mask replaces detected PII with tokens. The mapping is owned by the
	// caller and must be handed back to UnmaskForDisplay, never stored.
	Mask(text string) (string, *domain.Mapping)

	// UnmaskForDisplay replaces tokens with partial masks of their originals.
	// Originals are never reintroduced.
	UnmaskForDisplay(text string, mapping *domain.Mapping) string

	// RedactDocument irreversibly replaces PII with kind placeholders.
	RedactDocument(text string) string
}
