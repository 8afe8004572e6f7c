package driving

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// ReplyService composes a display-safe reply to a customer message.
type ReplyService interface {
	// Reply masks the message, retrieves context, generates and unmasks.
	Reply(ctx context.Context, req domain.ReplyRequest) (*domain.ReplyResponse, error)
}
