package detectors

import "github.com/custodia-labs/replyguard/internal/core/domain"

// Patterns for the built-in detectors.
const (
	// EmailPattern matches local@domain.tld shapes.
	EmailPattern = `[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`

	// PhonePattern matches an optional country code, an optional area code
	// and two groups of 3-4 digits with optional separators. Matches may
	// carry leading separators, so phone detection trims.
	PhonePattern = `(?:(?:\+?\d{1,3})?[-.\s(]*)?` + // country code
		`(?:\(?\d{2,4}\)?[-.\s]*)?` + // area code
		`\d{3,4}[-.\s]*\d{3,4}` // main number

	// NationalIDPattern matches 12-digit identifiers in groups of four.
	NationalIDPattern = `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`
)

// Email returns the email detector.
func Email() *RegexDetector {
	return MustRegexDetector(domain.PIIEmail, EmailPattern)
}

// Phone returns the phone detector.
func Phone() *RegexDetector {
	return MustRegexDetector(domain.PIIPhone, PhonePattern, WithTrim())
}

// NationalID returns the national-id detector.
func NationalID() *RegexDetector {
	return MustRegexDetector(domain.PIINationalID, NationalIDPattern)
}
