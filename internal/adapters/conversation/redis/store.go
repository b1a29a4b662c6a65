// Package redis keeps dialog state in Redis so several bot replicas can
// share it. Expiry is left to Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const keyPrefix = "stockroom:conversation:"

var _ ports.ConversationStore = (*Store)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Store struct {
	client *goredis.Client
	ttl    time.Duration
	clock  ports.Clock
}

func NewStore(opts Options, clock ports.Clock) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewStoreWithClient(client, opts.TTL, clock)
}

func NewStoreWithClient(client *goredis.Client, ttl time.Duration, clock ports.Clock) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Store{client: client, ttl: ttl, clock: clock}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (domain.Conversation, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get conversation: %w", err)
	}

	var record domain.ConversationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversationCorrupt, err)
	}
	return record.Decode()
}

func (s *Store) Set(ctx context.Context, key string, state domain.Conversation) error {
	if state == nil {
		return s.Clear(ctx, key)
	}

	data, err := json.Marshal(domain.EncodeConversation(state, s.clock.Now()))
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set conversation: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis clear conversation: %w", err)
	}
	return nil
}
