package services

import (
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// Ensure MaskingService implements the interface.
var _ driving.MaskingService = (*MaskingService)(nil)

// MaskingService tokenises PII in messages and redacts it in documents.
// It holds no per-call state and is safe for concurrent use.
type MaskingService struct {
	reversible []driven.Detector
	document   []driven.Detector
}

// NewMaskingService creates a masking service.
// reversible is applied in order by Mask, document by RedactDocument.
func NewMaskingService(reversible, document []driven.Detector) *MaskingService {
	return &MaskingService{
		reversible: reversible,
		document:   document,
	}
}

// Mask replaces detected PII with <KIND_N> tokens.
// Detectors run in priority order, each over the text already rewritten by
// the previous one. Every distinct value gets one token and every
// occurrence of it is replaced.
func (s *MaskingService) Mask(text string) (string, *domain.Mapping) {
	mapping := domain.NewMapping()
	out := text

	for _, d := range s.reversible {
		for _, det := range d.Detect(out) {
			token, isNew := mapping.Issue(det.Kind, det.Value)
			if !isNew {
				continue
			}
			out = strings.ReplaceAll(out, det.Value, token.String())
		}
	}

	return out, mapping
}

// UnmaskForDisplay replaces each token with a partial mask of its original.
func (s *MaskingService) UnmaskForDisplay(text string, mapping *domain.Mapping) string {
	out := text
	for _, e := range mapping.Entries() {
		out = strings.ReplaceAll(out, e.Token.String(), PartialMask(e.Token.Kind(), e.Original))
	}
	return out
}

// RedactDocument replaces PII with per-kind placeholders. Not reversible.
func (s *MaskingService) RedactDocument(text string) string {
	out := text
	for _, d := range s.document {
		placeholder := d.Kind().Placeholder()
		seen := make(map[string]struct{})
		for _, det := range d.Detect(out) {
			if _, ok := seen[det.Value]; ok {
				continue
			}
			seen[det.Value] = struct{}{}
			out = strings.ReplaceAll(out, det.Value, placeholder)
		}
	}
	return out
}

// PartialMask renders an original value so that it is recognisable but not
// recoverable. Kinds without a rule render as the generic mask.
func PartialMask(kind domain.PIIKind, original string) string {
	switch kind {
	case domain.PIIEmail:
		return PartialMaskEmail(original)
	case domain.PIIPhone:
		return PartialMaskPhone(original)
	default:
		return domain.GenericMask
	}
}

// PartialMaskEmail keeps the first and last character of the local part and
// of each domain label, e.g. vishal.mehta@gmail.com -> v**********a@g***l.c*m.
// Input without an @, or whose segments are all too short to star, renders
// as the email placeholder so the original never comes back verbatim.
func PartialMaskEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok {
		return domain.PIIEmail.Placeholder()
	}

	labels := strings.Split(host, ".")
	for i, l := range labels {
		labels[i] = maskSegment(l)
	}
	masked := maskSegment(local) + "@" + strings.Join(labels, ".")
	if masked == email {
		return domain.PIIEmail.Placeholder()
	}
	return masked
}

// PartialMaskPhone keeps the last four digits, e.g. +1 555-123-4567 -> *******4567.
// Numbers of four digits or fewer are fully starred.
func PartialMaskPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	n := len(digits)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	return strings.Repeat("*", n-4) + digits[n-4:]
}

// maskSegment keeps the first and last rune and stars the interior.
// Segments of two runes or fewer keep only the first rune.
func maskSegment(s string) string {
	r := []rune(s)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 2:
		return string(r[0]) + strings.Repeat("*", len(r)-1)
	default:
		return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
	}
}
