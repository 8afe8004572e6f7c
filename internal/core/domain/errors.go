package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, detector or processor type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrNothingToIndex indicates the corpus produced no eligible files or no chunks.
	// No artifacts are written when this is returned.
	ErrNothingToIndex = errors.New("nothing to index")

	// ErrIndexNotFound indicates no published index exists yet.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates the published artifacts disagree with each other.
	ErrIndexCorrupt = errors.New("index artifacts inconsistent")

	// ErrDimensionMismatch indicates embedding dimensions differ between
	// the index and the embedder. Vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidChunking indicates overlap is not smaller than chunk size.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// Reply Errors.

	// ErrGenerationFailed indicates every generation attempt failed.
	ErrGenerationFailed = errors.New("reply generation failed")
)
