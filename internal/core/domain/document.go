package domain

// Document is one corpus file after text extraction.
type Document struct {
	// Name is the base filename, used as the chunk source.
	Name string

	// Path is the absolute or corpus-relative file path.
	Path string

	// Content is the extracted text, redacted before chunking.
	Content string

	// OwnerID is derived from the filename convention, nil when absent.
	OwnerID *string
}

// ChunkMetadata describes where a chunk came from.
type ChunkMetadata struct {
	// Source is the originating document name.
	Source string

	// ChunkIndex is the 0-based position within the source's chunk sequence.
	ChunkIndex int

	// OwnerID is the owning customer, nil when unknown.
	OwnerID *string
}

// Owner returns the owner id or "" when absent.
func (m ChunkMetadata) Owner() string {
	if m.OwnerID == nil {
		return ""
	}
	return *m.OwnerID
}

// Chunk is a contiguous window of document text that gets embedded.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
