// Package memstore is the in-process storage.Store. It is the default
// backend when the host supplies no store: records live for the lifetime of
// the client, which matches how most embedding apps treat provisioned key
// material between launches of a session.
package memstore

import (
	"context"
	"sync"

	"github.com/piazza-xyz/piazza-go/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is a map-backed user-record store.
type Store struct {
	lock    sync.RWMutex
	records map[storage.Key]*storage.UserRecord
}

func New() *Store {
	return &Store{records: make(map[storage.Key]*storage.UserRecord)}
}

func (s *Store) GetUser(ctx context.Context, key storage.Key) (*storage.UserRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *Store) SaveUser(ctx context.Context, record *storage.UserRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	copied := *record
	s.records[record.Key()] = &copied
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.records), nil
}

func (s *Store) Close() error { return nil }
