package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	transcriptKeyPrefix  = "mediconnect:chat:"
	transcriptTTL        = 24 * time.Hour
	transcriptMaxEntries = 100
)

// TranscriptMessage is one chat turn in a symptom-checker session.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore keeps per-session chat history in redis.
type TranscriptStore struct {
	redis *redis.Client
}

// NewTranscriptStore creates a transcript store. A nil client disables it.
func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{redis: redisClient}
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}

// Append stores one chat turn, trimming the list to the newest entries.
func (s *TranscriptStore) Append(ctx context.Context, sessionID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if sessionID == "" {
		return errors.New("diagnosis: transcript sessionID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("diagnosis: marshal transcript message: %w", err)
	}

	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	pipe.LTrim(ctx, key, -transcriptMaxEntries, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("diagnosis: append transcript message: %w", err)
	}
	return nil
}

// List returns up to limit newest messages, oldest first.
func (s *TranscriptStore) List(ctx context.Context, sessionID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if sessionID == "" {
		return nil, errors.New("diagnosis: transcript sessionID required")
	}

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("diagnosis: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
