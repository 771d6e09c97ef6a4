// Package chat is the messaging subsystem client. Within the identity layer
// it is a session sink like the other subsystems, and additionally the
// consumer of the E2E key material the provisioner stores: private
// application content is encrypted with the account's key pair, so chat
// needs to recover the plaintext private key at runtime.
package chat

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"sync"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/piazza-xyz/piazza-go/keys"
	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/pkg/errors"
)

// NoCurrentAccountErr is returned by key accessors before authentication.
var NoCurrentAccountErr = errors.New("no current account")

// Chat issues authenticated messaging requests and decrypts E2E content for
// the current account.
type Chat struct {
	client *httpclient.Client
	store  storage.Store
	crypto keys.Crypto

	lock      sync.RWMutex
	authToken string
	current   *account.Account
}

// New initializes the chat client.
func New(client *httpclient.Client, store storage.Store, crypto keys.Crypto) (*Chat, error) {
	if client == nil {
		return nil, errors.New("[chat.New] backend client is required")
	}
	if store == nil {
		return nil, errors.New("[chat.New] store is required")
	}
	if crypto == nil {
		return nil, errors.New("[chat.New] crypto capability is required")
	}
	return &Chat{client: client, store: store, crypto: crypto}, nil
}

// SetAuthToken installs the session bearer token.
func (c *Chat) SetAuthToken(token string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.authToken = token
}

// SetCurrentAccount installs the authenticated account.
func (c *Chat) SetCurrentAccount(a *account.Account) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.current = a
}

// AuthToken returns the installed session token, empty before
// authentication.
func (c *Chat) AuthToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.authToken
}

// CurrentAccount returns the authenticated account, nil before
// authentication.
func (c *Chat) CurrentAccount() *account.Account {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.current
}

// E2EPublicKey returns the stored public key PEM for the current account.
func (c *Chat) E2EPublicKey(ctx context.Context) (string, error) {
	record, _, err := c.currentRecord(ctx)
	if err != nil {
		return "", err
	}
	return record.E2EPublicKey, nil
}

// E2EPrivateKey recovers the plaintext private key PEM for the current
// account by decrypting the stored ciphertext with the session-delivered
// secret material. The plaintext is always computed at runtime and never
// persisted.
func (c *Chat) E2EPrivateKey(ctx context.Context) (string, error) {
	record, current, err := c.currentRecord(ctx)
	if err != nil {
		return "", err
	}

	secret, err := secretText(current.E2ESecret)
	if err != nil {
		return "", err
	}
	secretIV, err := secretText(current.E2ESecretIV)
	if err != nil {
		return "", err
	}

	plaintext, err := c.crypto.DecryptAESCBC(record.E2EEncryptedPrivateKey, secret, secretIV)
	if err != nil {
		return "", errors.Wrap(err, "decrypt e2e private key")
	}
	return plaintext, nil
}

func (c *Chat) currentRecord(ctx context.Context) (*storage.UserRecord, *account.Account, error) {
	c.lock.RLock()
	current := c.current
	c.lock.RUnlock()
	if current == nil {
		return nil, nil, NoCurrentAccountErr
	}

	record, err := c.store.GetUser(ctx, storage.Key{DID: current.DID, OrganizationID: current.OrganizationID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "load local user record")
	}
	return record, current, nil
}

func secretText(hexEncoded string) (string, error) {
	raw, err := hex.DecodeString(hexEncoded)
	if err != nil {
		return "", errors.Wrap(err, "decode hex secret material")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
