// Package domain defines the core business entities for replyguard.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Token, Mapping: reversible PII placeholders and their originals
//   - Document, Chunk: corpus files and the units that get embedded
//   - SearchResult, ChunkFilter: retrieval output and attribute filtering
//   - IndexManifest, IndexSnapshot, BuildRecord: published index state
//   - Customer, Store: flat-file records used when composing replies
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
