// Package trade is the trading subsystem client. Within the identity layer
// it is consumed only as a session sink: it receives the session token and
// account after a successful authentication.
package trade

import (
	"sync"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/pkg/errors"
)

// Trade issues authenticated trading requests on behalf of the current
// account.
type Trade struct {
	client *httpclient.Client

	lock      sync.RWMutex
	authToken string
	current   *account.Account
}

// New initializes the trading client.
func New(client *httpclient.Client) (*Trade, error) {
	if client == nil {
		return nil, errors.New("[trade.New] backend client is required")
	}
	return &Trade{client: client}, nil
}

// SetAuthToken installs the session bearer token.
func (t *Trade) SetAuthToken(token string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.authToken = token
}

// SetCurrentAccount installs the authenticated account.
func (t *Trade) SetCurrentAccount(a *account.Account) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.current = a
}

// AuthToken returns the installed session token, empty before
// authentication.
func (t *Trade) AuthToken() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.authToken
}

// CurrentAccount returns the authenticated account, nil before
// authentication.
func (t *Trade) CurrentAccount() *account.Account {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.current
}
