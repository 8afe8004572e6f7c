package domain

import (
	"fmt"
	"strings"
)

// PIIKind is the category of a detected sensitive substring.
type PIIKind string

// Known PII kinds. The kind string is embedded in issued tokens.
const (
	PIIEmail      PIIKind = "EMAIL"
	PIIPhone      PIIKind = "PHONE"
	PIINationalID PIIKind = "ID"
)

// String returns the string representation.
func (k PIIKind) String() string {
	return string(k)
}

// Placeholder returns the irreversible placeholder used when
// redacting documents before indexing.
func (k PIIKind) Placeholder() string {
	switch k {
	case PIIEmail:
		return "<EMAIL_MASK>"
	case PIIPhone:
		return "<PHONE_MASK>"
	case PIINationalID:
		return "<ID_MASK>"
	default:
		return GenericMask
	}
}

// GenericMask is rendered for tokens whose kind has no partial-mask rule.
const GenericMask = "<MASKED>"

// Span is a half-open byte range [Start, End) within a text.
type Span struct {
	Start int
	End   int
}

// Detection is one PII match reported by a detector.
type Detection struct {
	Span  Span
	Kind  PIIKind
	Value string
}

// Token is a placeholder of the form <KIND_N>.
type Token string

// NewToken formats a token for the given kind and sequence number.
func NewToken(kind PIIKind, n int) Token {
	return Token(fmt.Sprintf("<%s_%d>", kind, n))
}

// Kind extracts the kind from a token. Returns "" if the token is malformed.
func (t Token) Kind() PIIKind {
	s := string(t)
	if len(s) < 4 || s[0] != '<' || s[len(s)-1] != '>' {
		return ""
	}
	i := strings.LastIndexByte(s, '_')
	if i <= 1 {
		return ""
	}
	return PIIKind(s[1:i])
}

// String returns the string representation.
func (t Token) String() string {
	return string(t)
}

// MappingEntry associates one token with the substring it replaced.
type MappingEntry struct {
	Token    Token
	Original string
}

// Mapping is the ordered token-to-original association produced by a
// single masking call. Fields are unexported so a mapping cannot be
// serialised by accident; callers hand it straight back to unmasking.
type Mapping struct {
	entries []MappingEntry
	byValue map[mappingKey]Token
}

type mappingKey struct {
	kind  PIIKind
	value string
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{byValue: make(map[mappingKey]Token)}
}

// Len returns the number of issued tokens.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Lookup returns the token already issued for value under kind.
func (m *Mapping) Lookup(kind PIIKind, value string) (Token, bool) {
	if m == nil {
		return "", false
	}
	t, ok := m.byValue[mappingKey{kind, value}]
	return t, ok
}

// Issue returns the token for value, assigning <KIND_{Len+1}> the first
// time a value is seen. The second return reports whether it was new.
func (m *Mapping) Issue(kind PIIKind, value string) (Token, bool) {
	if t, ok := m.Lookup(kind, value); ok {
		return t, false
	}
	if m.byValue == nil {
		m.byValue = make(map[mappingKey]Token)
	}
	t := NewToken(kind, len(m.entries)+1)
	m.entries = append(m.entries, MappingEntry{Token: t, Original: value})
	m.byValue[mappingKey{kind, value}] = t
	return t, true
}

// Entries returns a copy of the entries in issue order.
func (m *Mapping) Entries() []MappingEntry {
	if m == nil {
		return nil
	}
	out := make([]MappingEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Tokens returns the issued tokens in order.
func (m *Mapping) Tokens() []Token {
	if m == nil {
		return nil
	}
	out := make([]Token, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Token
	}
	return out
}
