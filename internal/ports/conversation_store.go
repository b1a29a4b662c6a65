package ports

import (
	"context"

	"github.com/bnema/stockroom/internal/domain"
)

// ConversationStore keeps at most one conversation per key. Get returns
// domain.ErrConversationNotFound for missing or expired entries and
// domain.ErrConversationCorrupt for unreadable ones.
type ConversationStore interface {
	Get(ctx context.Context, key string) (domain.Conversation, error)
	Set(ctx context.Context, key string, state domain.Conversation) error
	Clear(ctx context.Context, key string) error
}
