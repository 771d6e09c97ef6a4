// Package redisstore provides a Redis-backed storage.Store for hosted
// deployments where user records are cached server side instead of living in
// an on-device database.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "piazza:user:"

var _ storage.Store = (*Store)(nil)

// Store is a Redis-backed user-record store.
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed store around an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// recordKey encodes the tuple key. The DID is length-prefixed so attacker
// chosen identifiers containing separators cannot collide with another
// tuple.
func recordKey(key storage.Key) string {
	return fmt.Sprintf("%s%d:%s:%s", keyPrefix, len(key.DID), key.DID, key.OrganizationID)
}

func (s *Store) GetUser(ctx context.Context, key storage.Key) (*storage.UserRecord, error) {
	val, err := s.client.Get(ctx, recordKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user record: %w", err)
	}

	var record storage.UserRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return &record, nil
}

func (s *Store) SaveUser(ctx context.Context, record *storage.UserRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(record.Key()), raw, 0).Err(); err != nil {
		return fmt.Errorf("write user record: %w", err)
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan user records: %w", err)
	}
	return count, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
