package driven

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// CustomerDirectory looks up customer and store records.
type CustomerDirectory interface {
	// CustomerByToken returns the customer whose token matches,
	// or domain.ErrNotFound.
	CustomerByToken(ctx context.Context, token string) (*domain.Customer, error)

	// NearestStore returns the store to recommend.
	NearestStore(ctx context.Context) (domain.Store, error)
}
