package detectors

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure RegexDetector implements the interface.
var _ driven.Detector = (*RegexDetector)(nil)

// RegexDetector reports every non-overlapping match of one pattern.
type RegexDetector struct {
	kind domain.PIIKind
	re   *regexp.Regexp
	trim bool
}

// Option configures a RegexDetector.
type Option func(*RegexDetector)

// WithTrim strips surrounding whitespace from matches and drops empty ones.
// Matches are reported with the span of the trimmed value.
func WithTrim() Option {
	return func(d *RegexDetector) {
		d.trim = true
	}
}

// NewRegexDetector compiles expr into a detector for kind.
func NewRegexDetector(kind domain.PIIKind, expr string, opts ...Option) (*RegexDetector, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	d := &RegexDetector{kind: kind, re: re}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MustRegexDetector is like NewRegexDetector but panics on a bad pattern.
// Use it only for compile-time constant patterns.
func MustRegexDetector(kind domain.PIIKind, expr string, opts ...Option) *RegexDetector {
	d, err := NewRegexDetector(kind, expr, opts...)
	if err != nil {
		panic("detectors: " + err.Error())
	}
	return d
}

// Kind returns the PII kind this detector reports.
func (d *RegexDetector) Kind() domain.PIIKind {
	return d.kind
}

// Pattern returns the source expression.
func (d *RegexDetector) Pattern() string {
	return d.re.String()
}

// Detect returns matches in order of appearance.
func (d *RegexDetector) Detect(text string) []domain.Detection {
	locs := d.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	out := make([]domain.Detection, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		value := text[start:end]
		if d.trim {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			start += strings.Index(value, trimmed)
			end = start + len(trimmed)
			value = trimmed
		}
		if value == "" {
			continue
		}
		out = append(out, domain.Detection{
			Span:  domain.Span{Start: start, End: end},
			Kind:  d.kind,
			Value: value,
		})
	}
	return out
}
