package driven

import "context"

// TextExtractor turns a corpus file into plain text.
type TextExtractor interface {
	// SupportedExtensions returns lower-case extensions including the dot, e.g. ".pdf".
	SupportedExtensions() []string

	// Extract returns the file's text. Any failure yields "" so the
	// caller can skip the document.
	Extract(ctx context.Context, path string) string
}

// ExtractorRegistry selects an extractor by file extension.
type ExtractorRegistry interface {
	// Register adds an extractor. Later registrations win for shared extensions.
	Register(extractor TextExtractor)

	// ForPath returns the extractor for the path's extension.
	ForPath(path string) (TextExtractor, bool)

	// SupportedExtensions returns all registered extensions, sorted.
	SupportedExtensions() []string
}
