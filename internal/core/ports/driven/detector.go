package driven

import "github.com/custodia-labs/replyguard/internal/core/domain"

// Detector finds occurrences of one kind of PII.
// Implementations are stateless and safe for concurrent use.
type Detector interface {
	// Kind returns the PII kind this detector reports.
	Kind() domain.PIIKind

	// Detect returns matches in order of appearance.
	// Values are trimmed and never empty.
	Detect(text string) []domain.Detection
}
