// Package piazza wires the client-side identity layer into one object graph.
// Boot builds the HTTP client, the local store, the event bus, the four
// session sinks and the auth orchestrator; callers then attach a provider
// driver to the bus and drive logins through Client.Auth.
package piazza

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/piazza-xyz/piazza-go/auth"
	"github.com/piazza-xyz/piazza-go/chat"
	"github.com/piazza-xyz/piazza-go/events"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/piazza-xyz/piazza-go/keys"
	"github.com/piazza-xyz/piazza-go/oracle"
	"github.com/piazza-xyz/piazza-go/post"
	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/piazza-xyz/piazza-go/storage/memstore"
	"github.com/piazza-xyz/piazza-go/storage/sqlitestore"
	"github.com/piazza-xyz/piazza-go/trade"
)

var APIKeyRequiredErr = pkgerrors.New("an API key is required")

// Config is the host-supplied bootstrap configuration. The API key doubles
// as the backend organization identifier.
type Config struct {
	APIKey  string
	DevMode bool

	// ProviderAppID is the identity provider's application identifier,
	// handed to whichever driver the host attaches.
	ProviderAppID string

	// BackendURL overrides the environment default derived from DevMode.
	BackendURL string

	// StoragePath, when set, persists user records to a SQLite file at the
	// path. Ignored when Store is supplied.
	StoragePath string

	// Store overrides the local store entirely.
	Store storage.Store

	// AuthOptions are passed through to auth.New (unlink persistence,
	// custom crypto, key strength).
	AuthOptions []auth.Option
}

// Client is the assembled SDK.
type Client struct {
	Auth   *auth.Auth
	Trade  *trade.Trade
	Post   *post.Post
	Oracle *oracle.Oracle
	Chat   *chat.Chat

	bus           *events.Bus
	store         storage.Store
	ownsStore     bool
	providerAppID string
}

// Boot assembles a Client from the configuration.
func Boot(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, pkgerrors.Wrap(APIKeyRequiredErr, "[Boot]")
	}

	backendURL := cfg.BackendURL
	if backendURL == "" {
		backendURL = httpclient.BackendURLFor(cfg.DevMode)
	}
	httpClient, err := httpclient.New(backendURL, cfg.APIKey)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] httpclient.New")
	}

	store := cfg.Store
	ownsStore := false
	if store == nil {
		ownsStore = true
		if cfg.StoragePath != "" {
			store, err = sqlitestore.Open(cfg.StoragePath)
			if err != nil {
				return nil, pkgerrors.Wrap(err, "[Boot] sqlitestore.Open")
			}
		} else {
			store = memstore.New()
		}
	}

	tradeClient, err := trade.New(httpClient)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] trade.New")
	}
	postClient, err := post.New(httpClient)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] post.New")
	}
	oracleClient, err := oracle.New(httpClient)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] oracle.New")
	}
	chatClient, err := chat.New(httpClient, store, keys.StdCrypto{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] chat.New")
	}

	bus := events.New()
	sinks := auth.Sinks{
		Trade:  tradeClient,
		Post:   postClient,
		Oracle: oracleClient,
		Chat:   chatClient,
	}
	authClient, err := auth.New(httpClient, store, bus, sinks, cfg.AuthOptions...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Boot] auth.New")
	}

	return &Client{
		Auth:   authClient,
		Trade:  tradeClient,
		Post:   postClient,
		Oracle: oracleClient,
		Chat:   chatClient,

		bus:           bus,
		store:         store,
		ownsStore:     ownsStore,
		providerAppID: cfg.ProviderAppID,
	}, nil
}

// ProviderAppID returns the identity provider's application identifier for
// the attached driver.
func (c *Client) ProviderAppID() string { return c.providerAppID }

// Bus exposes the event bus so provider drivers can attach to it.
func (c *Client) Bus() *events.Bus { return c.bus }

// Store exposes the local user-record store.
func (c *Client) Store() storage.Store { return c.store }

// Close releases the store when Boot created it. A store supplied through
// Config.Store stays open; its lifetime belongs to the caller.
func (c *Client) Close() error {
	if !c.ownsStore {
		return nil
	}
	return c.store.Close()
}
