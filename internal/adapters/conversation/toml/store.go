// Package toml keeps dialog state in a TOML file, for single-host use.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const (
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".conversations-*.toml.tmp"
)

type Store struct {
	path  string
	ttl   time.Duration
	clock ports.Clock
	mu    *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.ConversationStore = (*Store)(nil)

func NewStore(path string, ttl time.Duration, clock ports.Clock) (*Store, error) {
	if path == "" {
		return nil, errors.New("conversation path is empty")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Store{path: absPath, ttl: ttl, clock: clock, mu: lockForPath(absPath)}, nil
}

func (s *Store) Get(ctx context.Context, key string) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	for _, entry := range file.Conversations {
		if entry.Key != key {
			continue
		}
		record, err := fromSchema(entry)
		if err != nil {
			return nil, err
		}
		if s.expired(record.UpdatedAt) {
			return nil, domain.ErrConversationNotFound
		}
		return record.Decode()
	}

	return nil, domain.ErrConversationNotFound
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

	file, err := s.readSchema()
	if errors.Is(err, domain.ErrConversationCorrupt) {
		file, err = fileSchema{}, nil
	}
	if err != nil {
		return err
	}

	encoded := toSchema(key, domain.EncodeConversation(state, s.clock.Now()))
	kept := make([]conversationSchema, 0, len(file.Conversations)+1)
	for _, entry := range file.Conversations {
		if entry.Key == key || s.staleEntry(entry) {
			continue
		}
		kept = append(kept, entry)
	}
	file.Conversations = append(kept, encoded)

	return s.writeSchema(file)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if errors.Is(err, domain.ErrConversationCorrupt) {
		return s.writeSchema(fileSchema{})
	}
	if err != nil {
		return err
	}

	kept := make([]conversationSchema, 0, len(file.Conversations))
	removed := false
	for _, entry := range file.Conversations {
		if entry.Key == key {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return nil
	}
	file.Conversations = kept

	return s.writeSchema(file)
}

func (s *Store) expired(updatedAt time.Time) bool {
	return s.ttl > 0 && s.clock.Now().Sub(updatedAt) > s.ttl
}

func (s *Store) staleEntry(entry conversationSchema) bool {
	record, err := fromSchema(entry)
	return err != nil || s.expired(record.UpdatedAt)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read conversations file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("%w: decode conversations file: %v", domain.ErrConversationCorrupt, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("create conversations directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode conversations file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp conversations file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp conversations file: %w", err)
	}

	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp conversations file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp conversations file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace conversations file: %w", err)
	}

	cleanup = false
	return nil
}
