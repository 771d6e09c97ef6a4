// Package oracle is the pricing-oracle subsystem client. Within the
// identity layer it is consumed only as a session sink.
package oracle

import (
	"sync"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/pkg/errors"
)

// Oracle issues authenticated pricing requests on behalf of the current
// account.
type Oracle struct {
	client *httpclient.Client

	lock      sync.RWMutex
	authToken string
	current   *account.Account
}

// New initializes the oracle client.
func New(client *httpclient.Client) (*Oracle, error) {
	if client == nil {
		return nil, errors.New("[oracle.New] backend client is required")
	}
	return &Oracle{client: client}, nil
}

// SetAuthToken installs the session bearer token.
func (o *Oracle) SetAuthToken(token string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.authToken = token
}

// SetCurrentAccount installs the authenticated account.
func (o *Oracle) SetCurrentAccount(a *account.Account) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.current = a
}

// AuthToken returns the installed session token, empty before
// authentication.
func (o *Oracle) AuthToken() string {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.authToken
}

// CurrentAccount returns the authenticated account, nil before
// authentication.
func (o *Oracle) CurrentAccount() *account.Account {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.current
}
