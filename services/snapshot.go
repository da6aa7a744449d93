package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"whoami/game"

	"github.com/redis/go-redis/v9"
)

var ErrSnapshotMissing = errors.New("no snapshot stored")

// SnapshotStore keeps the latest session snapshot in Redis so state survives
// across requests and can be served to reconnecting clients.
// A nil client turns every call into a no-op.
type SnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SnapshotStore{redis: client, ttl: ttl}
}

func snapshotKey(sessionID uint) string {
	return fmt.Sprintf("session:%d", sessionID)
}

func (s *SnapshotStore) client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.redis
}

func (s *SnapshotStore) Enabled() bool {
	return s != nil && s.redis != nil
}

func (s *SnapshotStore) Store(ctx context.Context, snap game.Snapshot) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, snapshotKey(snap.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, sessionID uint) (*game.Snapshot, error) {
	if !s.Enabled() {
		return nil, ErrSnapshotMissing
	}

	data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotMissing
		}
		return nil, fmt.Errorf("redis error getting snapshot %d: %w", sessionID, err)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("Failed to unmarshal snapshot for session %d: %v", sessionID, err)
		return nil, ErrSnapshotMissing
	}
	return &snap, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID uint) error {
	if !s.Enabled() {
		return nil
	}
	return s.redis.Del(ctx, snapshotKey(sessionID)).Err()
}
