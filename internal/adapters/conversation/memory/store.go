// Package memory keeps dialog state in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

var _ ports.ConversationStore = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   ports.Clock
	records map[string]domain.ConversationRecord
}

func NewStore(ttl time.Duration, clock ports.Clock) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Store{ttl: ttl, clock: clock, records: map[string]domain.ConversationRecord{}}
}

func (s *Store) Get(ctx context.Context, key string) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	if s.ttl > 0 && s.clock.Now().Sub(record.UpdatedAt) > s.ttl {
		delete(s.records, key)
		return nil, domain.ErrConversationNotFound
	}
	return record.Decode()
}

func (s *Store) Set(ctx context.Context, key string, state domain.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return s.Clear(ctx, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = domain.EncodeConversation(state, s.clock.Now())
	return nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}
