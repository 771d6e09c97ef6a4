// Package post is the posting subsystem client. Within the identity layer
// it is consumed only as a session sink.
package post

import (
	"sync"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/pkg/errors"
)

// Post issues authenticated posting requests on behalf of the current
// account.
type Post struct {
	client *httpclient.Client

	lock      sync.RWMutex
	authToken string
	current   *account.Account
}

// New initializes the posting client.
func New(client *httpclient.Client) (*Post, error) {
	if client == nil {
		return nil, errors.New("[post.New] backend client is required")
	}
	return &Post{client: client}, nil
}

// SetAuthToken installs the session bearer token.
func (p *Post) SetAuthToken(token string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.authToken = token
}

// SetCurrentAccount installs the authenticated account.
func (p *Post) SetCurrentAccount(a *account.Account) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.current = a
}

// AuthToken returns the installed session token, empty before
// authentication.
func (p *Post) AuthToken() string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.authToken
}

// CurrentAccount returns the authenticated account, nil before
// authentication.
func (p *Post) CurrentAccount() *account.Account {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.current
}
