package domain

import "fmt"

// ChunkFilter decides whether a chunk's metadata qualifies for a result set.
// A returned error counts as "does not match".
type ChunkFilter func(ChunkMetadata) (bool, error)

// OwnerFilter matches chunks owned by ownerID.
func OwnerFilter(ownerID string) ChunkFilter {
	return func(m ChunkMetadata) (bool, error) {
		return m.OwnerID != nil && *m.OwnerID == ownerID, nil
	}
}

// SourceFilter matches chunks from the named document.
func SourceFilter(source string) ChunkFilter {
	return func(m ChunkMetadata) (bool, error) {
		return m.Source == source, nil
	}
}

// QueryOptions configures a retrieval query.
type QueryOptions struct {
	// K is the number of results wanted. Zero or less uses the configured default.
	K int

	// Filter restricts results. Nil accepts everything.
	Filter ChunkFilter
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	// Text is the chunk text.
	Text string

	// Metadata describes the chunk origin.
	Metadata ChunkMetadata

	// Score is the squared L2 distance to the query. Lower is more similar.
	Score float64
}

// Label returns "source#index" for display.
func (r SearchResult) Label() string {
	return fmt.Sprintf("%s#%d", r.Metadata.Source, r.Metadata.ChunkIndex)
}
