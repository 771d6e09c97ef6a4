// Package auth implements the authentication and account-linking
// orchestrator. Public methods bridge the asynchronous, externally driven
// identity provider (reached through the event bus) into blocking calls:
// each flow registers a success/error listener pair, emits one request event
// toward the provider driver, waits for the outcome, exchanges the provider
// credentials with the backend and fans the resulting session out to the
// dependent subsystems.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/events"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/piazza-xyz/piazza-go/keys"
	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/pkg/errors"
)

// SessionSink receives the session token and account projection after a
// successful authentication.
type SessionSink interface {
	SetAuthToken(token string)
	SetCurrentAccount(a *account.Account)
}

// Sinks holds the four dependent subsystems a session is propagated to.
type Sinks struct {
	Trade  SessionSink
	Post   SessionSink
	Oracle SessionSink
	Chat   SessionSink
}

// Session is the transient authentication state produced by a successful
// backend exchange. It is never persisted.
type Session struct {
	SessionToken            string
	IsConnected             bool
	LoginMethod             string
	IsNewUser               bool
	WasAlreadyAuthenticated bool
}

// AuthResult pairs the session with the account projection returned by the
// backend.
type AuthResult struct {
	Auth    Session
	Account *account.Account
}

// UnlinkPersister persists a provider unlink to the backend. Backend
// persistence of unlinks has no settled endpoint yet, so the hook is
// pluggable; when nil the unlink is provider side only.
type UnlinkPersister func(ctx context.Context, method string) error

// Auth is the authentication client. Construct with New; a single instance
// serves one organization (API key) and one provider driver.
type Auth struct {
	client      *httpclient.Client
	store       storage.Store
	bus         *events.Bus
	sinks       Sinks
	crypto      keys.Crypto
	keyStrength keys.Strength
	provisioner *keys.Provisioner

	unlinkPersister UnlinkPersister
	newFlowID       func() string
}

// Option modifies an Auth instance at construction.
type Option func(*Auth)

// WithUnlinkPersister installs the backend persistence hook for unlink.
func WithUnlinkPersister(persister UnlinkPersister) Option {
	return func(a *Auth) {
		a.unlinkPersister = persister
	}
}

// WithCrypto overrides the cryptography capability.
func WithCrypto(c keys.Crypto) Option {
	return func(a *Auth) {
		a.crypto = c
	}
}

// WithKeyStrength overrides the E2E key strength tier (primarily for
// testing).
func WithKeyStrength(strength keys.Strength) Option {
	return func(a *Auth) {
		a.keyStrength = strength
	}
}

// WithFlowIDFunc overrides flow ID generation (primarily for testing).
func WithFlowIDFunc(fn func() string) Option {
	return func(a *Auth) {
		a.newFlowID = fn
	}
}

// New initializes the authentication client with required dependencies and
// registers the handlers that resume flows after an external OAuth redirect.
func New(client *httpclient.Client, store storage.Store, bus *events.Bus, sinks Sinks, options ...Option) (*Auth, error) {
	if client == nil {
		return nil, errors.New("[auth.New] backend client is required")
	}
	if store == nil {
		return nil, errors.New("[auth.New] store is required")
	}
	if bus == nil {
		return nil, errors.New("[auth.New] event bus is required")
	}
	if sinks.Trade == nil || sinks.Post == nil || sinks.Oracle == nil || sinks.Chat == nil {
		return nil, errors.New("[auth.New] all four session sinks are required")
	}

	a := &Auth{
		client:      client,
		store:       store,
		bus:         bus,
		sinks:       sinks,
		crypto:      keys.StdCrypto{},
		keyStrength: keys.StrengthHigh,
		newFlowID:   uuid.NewString,
	}
	for _, opt := range options {
		opt(a)
	}

	if err := a.rebuildProvisioner(); err != nil {
		return nil, err
	}

	// OAuth providers leave the application for their own pages; when the
	// provider resumes the app afterwards these events fire with no pending
	// call to settle, so the exchange result travels over the public
	// auth/link events instead.
	bus.On(EventOAuthAuthenticated, func(payload any) {
		if info, ok := payload.(*AuthInfo); ok {
			go a.resumeAuthAfterOAuthRedirect(info)
		}
	})
	bus.On(EventOAuthLinkAuthenticated, func(payload any) {
		if info, ok := payload.(*AuthInfo); ok {
			go a.resumeLinkAfterOAuthRedirect(info)
		}
	})

	// Provider-side login/link errors are bridged onto the public error
	// events for consumers that subscribed there.
	bus.On(EventLoginError, func(payload any) {
		a.bus.Emit(EventAuthError, payload)
	})
	bus.On(EventLinkAccountError, func(payload any) {
		a.bus.Emit(EventLinkError, payload)
	})

	return a, nil
}

func (a *Auth) rebuildProvisioner() error {
	provisioner, err := keys.NewProvisioner(a.crypto, a.store, keys.WithStrength(a.keyStrength))
	if err != nil {
		return err
	}
	a.provisioner = provisioner
	return nil
}

// ClientConfig carries updatable client settings.
type ClientConfig struct {
	Storage storage.Store
}

// Config updates the client's settings. Only non-nil fields are applied.
func (a *Auth) Config(cfg ClientConfig) error {
	if cfg.Storage != nil {
		a.store = cfg.Storage
		if err := a.rebuildProvisioner(); err != nil {
			return errors.Wrap(err, "[Auth.Config]")
		}
	}
	return nil
}

// On registers a callback on the underlying event bus. It is the seam used
// by the provider-driver integration layer.
func (a *Auth) On(eventName string, callback events.Handler) {
	a.bus.On(eventName, callback)
}

// Emit emits an event on the underlying event bus.
func (a *Auth) Emit(eventName string, payload any) {
	a.bus.Emit(eventName, payload)
}

// driverFailure converts an error-event payload into an error.
func driverFailure(payload any) error {
	switch v := payload.(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	default:
		return fmt.Errorf("provider error: %v", v)
	}
}

// awaitFlow registers listeners for the flow's success and error events,
// runs emit, then blocks until one of them fires or ctx expires. Passing an
// empty errorEvent waits on the success event only.
func (a *Auth) awaitFlow(ctx context.Context, flowID, successEvent, errorEvent string, emit func()) (any, error) {
	success := a.bus.Listen(successEvent, flowID)
	defer success.Close()

	var failureC <-chan any
	if errorEvent != "" {
		failure := a.bus.Listen(errorEvent, flowID)
		defer failure.Close()
		failureC = failure.C()
	}

	emit()

	select {
	case payload := <-success.C():
		return payload, nil
	case payload := <-failureC:
		return nil, driverFailure(payload)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func loginRequest(flowID string, options AuthenticationOptions) (string, any) {
	switch options.Type {
	case TypeEmail:
		return EventAuthenticateEmail, EmailOTPAuthRequest{FlowID: flowID, Email: options.Email, OTP: options.OTPCode}
	case TypeSMS:
		return EventAuthenticateSMS, SMSOTPAuthRequest{FlowID: flowID, Phone: options.Phone, OTP: options.OTPCode}
	case TypeOAuth:
		return EventAuthenticateOAuth, OAuthRequest{FlowID: flowID, Provider: options.Provider}
	default:
		// Only the embedded metamask connector is supported for now.
		return EventAuthenticateWallet, WalletAuthRequest{FlowID: flowID, Wallet: "metamask"}
	}
}

func linkRequest(flowID string, options AuthenticationOptions) (string, any) {
	switch options.Type {
	case TypeEmail:
		return EventLinkEmail, EmailOTPAuthRequest{FlowID: flowID, Email: options.Email, OTP: options.OTPCode}
	case TypeSMS:
		return EventLinkSMS, SMSOTPAuthRequest{FlowID: flowID, Phone: options.Phone, OTP: options.OTPCode}
	case TypeOAuth:
		return EventLinkOAuth, OAuthRequest{FlowID: flowID, Provider: options.Provider}
	default:
		return EventLinkWallet, WalletAuthRequest{FlowID: flowID, Wallet: "metamask"}
	}
}

// Authenticate runs one full login flow: validate options, request a
// provider-side login, exchange the provider credentials with the backend,
// fan the session out and provision local E2E keys. It blocks until the flow
// settles or ctx expires; the provider driver attached to the bus is
// responsible for eventually firing a completion or error event.
func (a *Auth) Authenticate(ctx context.Context, options AuthenticationOptions) (*AuthResult, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}

	flowID := a.newFlowID()
	requestEvent, payload := loginRequest(flowID, options)

	raw, err := a.awaitFlow(ctx, flowID, EventLoginComplete, EventLoginError, func() {
		a.bus.Emit(requestEvent, payload)
	})
	if err != nil {
		return nil, err
	}
	info, ok := raw.(*AuthInfo)
	if !ok {
		return nil, UnexpectedPayloadErr
	}

	return a.exchangeAuth(ctx, info, EventLoginComplete, EventLoginError)
}

// Link attaches one more identity provider to the already authenticated
// account. Same shape as Authenticate, against the link endpoint.
func (a *Auth) Link(ctx context.Context, options AuthenticationOptions) (*AuthInfo, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}

	flowID := a.newFlowID()
	requestEvent, payload := linkRequest(flowID, options)

	// Same-session OAuth links are reported by the provider through the
	// login-complete event, not the link-complete one.
	successEvent := EventLinkAccountComplete
	if options.Type == TypeOAuth {
		successEvent = EventLoginComplete
	}

	raw, err := a.awaitFlow(ctx, flowID, successEvent, EventLinkAccountError, func() {
		a.bus.Emit(requestEvent, payload)
	})
	if err != nil {
		return nil, err
	}
	info, ok := raw.(*AuthInfo)
	if !ok {
		return nil, UnexpectedPayloadErr
	}

	return a.exchangeLink(ctx, info, EventLinkAccountComplete, EventLinkAccountError)
}

// Unlink detaches an identity provider. The provider driver performs the
// actual unlink; the driver-reported status is returned verbatim. When an
// UnlinkPersister is configured it runs after the provider-side unlink
// completes.
func (a *Auth) Unlink(ctx context.Context, method string) (bool, error) {
	if _, ok := unlinkMethods[method]; !ok {
		return false, UnsupportedUnlinkErr
	}

	flowID := a.newFlowID()
	raw, err := a.awaitFlow(ctx, flowID, EventUnlinkComplete, EventUnlinkError, func() {
		a.bus.Emit(EventUnlinkRequest, UnlinkRequest{FlowID: flowID, Method: method})
	})
	if err != nil {
		return false, err
	}

	var status bool
	switch v := raw.(type) {
	case UnlinkResult:
		status = v.Status
	case bool:
		status = v
	default:
		return false, UnexpectedPayloadErr
	}

	if a.unlinkPersister != nil {
		if err := a.unlinkPersister(ctx, method); err != nil {
			return false, err
		}
	}
	return status, nil
}

// SendEmailOTPCode asks the provider to send a login OTP to email.
func (a *Auth) SendEmailOTPCode(ctx context.Context, email string) error {
	flowID := a.newFlowID()
	_, err := a.awaitFlow(ctx, flowID, EventEmailOTPCodeSent, EventEmailOTPCodeSentError, func() {
		a.bus.Emit(EventSendEmailOTPCode, EmailOTPCodeRequest{FlowID: flowID, Email: email})
	})
	return err
}

// SendPhoneOTPCode asks the provider to send a login OTP over SMS.
func (a *Auth) SendPhoneOTPCode(ctx context.Context, phone string) error {
	flowID := a.newFlowID()
	_, err := a.awaitFlow(ctx, flowID, EventSMSOTPCodeSent, EventSMSOTPCodeSentError, func() {
		a.bus.Emit(EventSendSMSOTPCode, SMSOTPCodeRequest{FlowID: flowID, Phone: phone})
	})
	return err
}

// SendEmailOTPCodeAfterAuth asks the provider to send a link-verification
// OTP to email for an already authenticated user.
func (a *Auth) SendEmailOTPCodeAfterAuth(ctx context.Context, email string) error {
	flowID := a.newFlowID()
	_, err := a.awaitFlow(ctx, flowID, EventEmailOTPCodeAfterAuthSent, EventEmailOTPCodeAfterAuthSentError, func() {
		a.bus.Emit(EventSendEmailOTPCodeAfterAuth, EmailOTPCodeRequest{FlowID: flowID, Email: email})
	})
	return err
}

// SendPhoneOTPCodeAfterAuth asks the provider to send a link-verification
// OTP over SMS for an already authenticated user.
func (a *Auth) SendPhoneOTPCodeAfterAuth(ctx context.Context, phone string) error {
	flowID := a.newFlowID()
	_, err := a.awaitFlow(ctx, flowID, EventSMSOTPCodeAfterAuthSent, EventSMSOTPCodeAfterAuthSentError, func() {
		a.bus.Emit(EventSendSMSOTPCodeAfterAuth, SMSOTPCodeRequest{FlowID: flowID, Phone: phone})
	})
	return err
}

// Logout ends the provider session and reports the driver's completion
// status. No backend call is involved; pending login listeners are
// deactivated first.
func (a *Auth) Logout(ctx context.Context) (bool, error) {
	a.bus.Clear(EventLoginComplete, EventLoginError)

	flowID := a.newFlowID()
	raw, err := a.awaitFlow(ctx, flowID, EventLogoutComplete, "", func() {
		a.bus.Emit(EventLogoutRequest, LogoutRequest{FlowID: flowID})
	})
	if err != nil {
		return false, err
	}

	switch v := raw.(type) {
	case LogoutResult:
		return v.Status, nil
	case bool:
		return v, nil
	default:
		return false, UnexpectedPayloadErr
	}
}

// Ready reports whether the provider driver has signalled readiness. It
// blocks until the ready event fires; any failure, including ctx expiry,
// reports false rather than an error.
func (a *Auth) Ready(ctx context.Context) bool {
	listener := a.bus.Listen(EventProviderReady, "")
	defer listener.Close()

	select {
	case <-listener.C():
		return true
	case <-ctx.Done():
		return false
	}
}
