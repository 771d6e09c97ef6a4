package storefakes

import (
	"context"
	"sync"

	"github.com/piazza-xyz/piazza-go/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory storage.Store for tests.
type FakeStore struct {
	lock    sync.RWMutex
	records map[storage.Key]*storage.UserRecord

	// FailWith, when set, is returned by every operation. Used to exercise
	// store-unavailable paths.
	FailWith error

	// Closed records whether Close has been called.
	Closed bool
}

func NewFakeStore() *FakeStore {
	return &FakeStore{records: make(map[storage.Key]*storage.UserRecord)}
}

func (fs *FakeStore) GetUser(ctx context.Context, key storage.Key) (*storage.UserRecord, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.FailWith != nil {
		return nil, fs.FailWith
	}
	record, ok := fs.records[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (fs *FakeStore) SaveUser(ctx context.Context, record *storage.UserRecord) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.FailWith != nil {
		return fs.FailWith
	}
	copied := *record
	fs.records[record.Key()] = &copied
	return nil
}

func (fs *FakeStore) CountUsers(ctx context.Context) (int, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.FailWith != nil {
		return 0, fs.FailWith
	}
	return len(fs.records), nil
}

func (fs *FakeStore) Close() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.Closed = true
	return nil
}
