package driven

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// BuildLedger records index build attempts.
type BuildLedger interface {
	// Record stores a build record.
	Record(ctx context.Context, record domain.BuildRecord) error

	// Latest returns the most recent record, or domain.ErrNotFound.
	Latest(ctx context.Context) (*domain.BuildRecord, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]domain.BuildRecord, error)

	// Close releases resources.
	Close() error
}
