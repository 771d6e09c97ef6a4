// Package oidcdriver is a reference provider driver for desktop and server
// apps whose identity provider speaks plain OIDC. It answers the OAuth
// request events with an authorization-code + PKCE flow: the host opens the
// authorization URL, and hands the redirect back to CompleteAuthentication,
// which exchanges the code, verifies the ID token and emits the completion
// event for the originating flow.
//
// Email, SMS and wallet request events are outside its remit and are answered
// with an unsupported-method error event.
package oidcdriver

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/piazza-xyz/piazza-go/auth"
	"github.com/piazza-xyz/piazza-go/driver"
	"github.com/piazza-xyz/piazza-go/events"
)

var _ driver.Driver = (*Driver)(nil)

var (
	ProviderRequiredErr    = pkgerrors.New("OIDC provider configuration is required")
	BuildAuthInfoFuncErr   = pkgerrors.New("a BuildAuthInfo function is required")
	UnknownFlowStateErr    = pkgerrors.New("no pending flow matches the state parameter")
	MissingIDTokenErr      = pkgerrors.New("token response did not include an id_token")
	UnsupportedUpstreamErr = pkgerrors.New("request method is not handled by the OIDC driver")
)

// Config carries the relying-party registration for the upstream provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to openid, profile, email and offline_access.
	Scopes []string

	// OpenURL is invoked with the authorization URL when an OAuth request
	// event arrives. Typically it opens the system browser.
	OpenURL func(url string) error
}

// BuildAuthInfoFunc turns a verified ID token and its OAuth token into the
// credential payload the SDK exchanges with the backend. The host supplies
// it because the linked-account shape (wallets included) lives with the
// identity service, not with the OIDC layer.
type BuildAuthInfoFunc func(ctx context.Context, idToken *oidc.IDToken, token *oauth2.Token) (*auth.AuthInfo, error)

type pendingFlow struct {
	flowID   string
	provider string
	verifier string
	link     bool
}

// Driver performs authorization-code OAuth with PKCE against one OIDC issuer.
type Driver struct {
	cfg           Config
	oauthConfig   *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	buildAuthInfo BuildAuthInfoFunc

	bus *events.Bus

	lock    sync.Mutex
	pending map[string]pendingFlow
}

// New discovers the issuer and prepares the relying-party configuration.
func New(ctx context.Context, cfg Config, buildAuthInfo BuildAuthInfoFunc) (*Driver, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, pkgerrors.Wrap(ProviderRequiredErr, "[New]")
	}
	if buildAuthInfo == nil {
		return nil, pkgerrors.Wrap(BuildAuthInfoFuncErr, "[New]")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[New] oidc.NewProvider")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}

	return &Driver{
		cfg: cfg,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:      provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		buildAuthInfo: buildAuthInfo,
		pending:       map[string]pendingFlow{},
	}, nil
}

// Attach subscribes the driver to the OAuth request events and announces
// readiness.
func (d *Driver) Attach(bus *events.Bus) error {
	if bus == nil {
		return pkgerrors.New("[Attach] bus is required")
	}
	d.bus = bus

	bus.On(auth.EventAuthenticateOAuth, func(payload any) { d.beginFlow(payload, false) })
	bus.On(auth.EventLinkOAuth, func(payload any) { d.beginFlow(payload, true) })

	for _, unsupported := range []struct {
		request string
		failure string
	}{
		{auth.EventAuthenticateEmail, auth.EventLoginError},
		{auth.EventAuthenticateSMS, auth.EventLoginError},
		{auth.EventAuthenticateWallet, auth.EventLoginError},
		{auth.EventLinkEmail, auth.EventLinkAccountError},
		{auth.EventLinkSMS, auth.EventLinkAccountError},
		{auth.EventLinkWallet, auth.EventLinkAccountError},
	} {
		failure := unsupported.failure
		bus.On(unsupported.request, func(payload any) {
			d.bus.Emit(failure, &auth.DriverError{
				FlowID:  requestFlowID(payload),
				Code:    "unsupported_method",
				Message: UnsupportedUpstreamErr.Error(),
			})
		})
	}

	bus.Emit(auth.EventProviderReady, nil)
	return nil
}

func (d *Driver) beginFlow(payload any, link bool) {
	req, ok := payload.(auth.OAuthRequest)
	if !ok {
		return
	}
	if d.cfg.OpenURL == nil {
		d.fail(pendingFlow{flowID: req.FlowID, link: link}, "no_browser", "no OpenURL handler configured")
		return
	}

	state := generateRandomString(32)
	verifier := generateRandomString(64)

	d.lock.Lock()
	d.pending[state] = pendingFlow{
		flowID:   req.FlowID,
		provider: req.Provider,
		verifier: verifier,
		link:     link,
	}
	d.lock.Unlock()

	url := d.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	if err := d.cfg.OpenURL(url); err != nil {
		log.Error().Err(err).Str("provider", req.Provider).Msg("opening authorization URL failed")
		d.lock.Lock()
		delete(d.pending, state)
		d.lock.Unlock()
		d.fail(pendingFlow{flowID: req.FlowID, link: link}, "browser_error", err.Error())
	}
}

// CompleteAuthentication settles the flow identified by state with the
// authorization code carried on the redirect. The host calls it from its
// redirect handler.
func (d *Driver) CompleteAuthentication(ctx context.Context, state, code string) error {
	d.lock.Lock()
	flow, ok := d.pending[state]
	if ok {
		delete(d.pending, state)
	}
	d.lock.Unlock()
	if !ok {
		return pkgerrors.Wrap(UnknownFlowStateErr, "[CompleteAuthentication]")
	}

	oauth2Token, err := d.oauthConfig.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", flow.verifier))
	if err != nil {
		d.fail(flow, "exchange_failed", err.Error())
		return pkgerrors.Wrap(err, "[CompleteAuthentication] code exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		d.fail(flow, "missing_id_token", MissingIDTokenErr.Error())
		return pkgerrors.Wrap(MissingIDTokenErr, "[CompleteAuthentication]")
	}

	idToken, err := d.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		d.fail(flow, "invalid_id_token", err.Error())
		return pkgerrors.Wrap(err, "[CompleteAuthentication] id token verification")
	}

	info, err := d.buildAuthInfo(ctx, idToken, oauth2Token)
	if err != nil {
		d.fail(flow, "profile_error", err.Error())
		return pkgerrors.Wrap(err, "[CompleteAuthentication] building auth info")
	}
	info.FlowID = flow.flowID
	if info.LoginMethod == "" {
		info.LoginMethod = flow.provider
	}

	if flow.link {
		d.bus.Emit(auth.EventOAuthLinkAuthenticated, info)
	} else {
		d.bus.Emit(auth.EventOAuthAuthenticated, info)
	}
	return nil
}

func (d *Driver) fail(flow pendingFlow, code, message string) {
	event := auth.EventLoginError
	if flow.link {
		event = auth.EventLinkAccountError
	}
	d.bus.Emit(event, &auth.DriverError{FlowID: flow.flowID, Code: code, Message: message})
}

func requestFlowID(payload any) string {
	if scoped, ok := payload.(events.FlowScoped); ok {
		return scoped.EventFlowID()
	}
	return ""
}

func generateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

func generateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
