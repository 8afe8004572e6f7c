// Package plaintext extracts text from .txt files.
package plaintext

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

const bom = "\ufeff"

// Extractor reads UTF-8 text files.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt"}
}

// Extract returns the file content. Invalid UTF-8 sequences are dropped
// and a leading byte order mark is removed.
func (e *Extractor) Extract(_ context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("plaintext: read %s: %v", path, err)
		return ""
	}
	text := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(text, bom)
}
