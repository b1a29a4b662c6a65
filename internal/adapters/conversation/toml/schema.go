package toml

import (
	"fmt"
	"time"

	"github.com/bnema/stockroom/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version       int                  `toml:"version"`
	Conversations []conversationSchema `toml:"conversations"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported conversations schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type conversationSchema struct {
	Key       string `toml:"key"`
	Flow      string `toml:"flow"`
	Step      string `toml:"step"`
	Type      string `toml:"type,omitempty"`
	Custom    bool   `toml:"custom,omitempty"`
	UpdatedAt string `toml:"updated_at"`
}

func toSchema(key string, record domain.ConversationRecord) conversationSchema {
	return conversationSchema{
		Key:       key,
		Flow:      string(record.Flow),
		Step:      string(record.Step),
		Type:      string(record.Type),
		Custom:    record.Custom,
		UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromSchema(entry conversationSchema) (domain.ConversationRecord, error) {
	updatedAt, err := time.Parse(time.RFC3339Nano, entry.UpdatedAt)
	if err != nil {
		return domain.ConversationRecord{}, fmt.Errorf("%w: updated_at %q", domain.ErrConversationCorrupt, entry.UpdatedAt)
	}

	return domain.ConversationRecord{
		Flow:      domain.Flow(entry.Flow),
		Step:      domain.Step(entry.Step),
		Type:      domain.ResourceType(entry.Type),
		Custom:    entry.Custom,
		UpdatedAt: updatedAt,
	}, nil
}
