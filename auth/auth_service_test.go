package auth_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/auth"
	"github.com/piazza-xyz/piazza-go/events"
	"github.com/piazza-xyz/piazza-go/internal/httpclient"
	"github.com/piazza-xyz/piazza-go/keys"
	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/piazza-xyz/piazza-go/storage/storefakes"
)

const (
	testAPIKey        = "org-test-1"
	testDID           = "did:piazza:0xa1b2c3"
	testAuthToken     = "provider-session-token-1"
	testWalletAddress = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
)

// testFixture holds all test dependencies: the bus the fake driver answers
// on, the fake local store, the four recording sinks and an httptest backend
// whose handler each test installs.
type testFixture struct {
	bus   *events.Bus
	store *storefakes.FakeStore

	trade  *fakeSink
	post   *fakeSink
	oracle *fakeSink
	chat   *fakeSink

	server  *httptest.Server
	lock    sync.Mutex
	handler http.HandlerFunc
	calls   int

	service *auth.Auth
}

// fakeSink records session propagation.
type fakeSink struct {
	lock     sync.Mutex
	tokens   []string
	accounts []*account.Account
}

func (s *fakeSink) SetAuthToken(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokens = append(s.tokens, token)
}

func (s *fakeSink) SetCurrentAccount(a *account.Account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accounts = append(s.accounts, a)
}

func (s *fakeSink) sessions() (int, int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.tokens), len(s.accounts)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		bus:    events.New(),
		store:  storefakes.NewFakeStore(),
		trade:  &fakeSink{},
		post:   &fakeSink{},
		oracle: &fakeSink{},
		chat:   &fakeSink{},
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lock.Lock()
		f.calls++
		handler := f.handler
		f.lock.Unlock()
		if handler == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	client, err := httpclient.New(f.server.URL, testAPIKey)
	require.NoError(t, err)

	sinks := auth.Sinks{Trade: f.trade, Post: f.post, Oracle: f.oracle, Chat: f.chat}
	f.service, err = auth.New(client, f.store, f.bus, sinks, auth.WithKeyStrength(keys.StrengthLow))
	require.NoError(t, err)

	return f
}

func (f *testFixture) backendCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

func (f *testFixture) setHandler(h http.HandlerFunc) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.handler = h
}

// driverCompletesLogin installs a fake provider driver that answers the
// wallet login request with the given credentials, echoing the flow ID.
func (f *testFixture) driverCompletesLogin(info *auth.AuthInfo) {
	f.bus.On(auth.EventAuthenticateWallet, func(payload any) {
		req, ok := payload.(auth.WalletAuthRequest)
		if !ok {
			return
		}
		completed := *info
		completed.FlowID = req.FlowID
		f.bus.Emit(auth.EventLoginComplete, &completed)
	})
}

func walletAuthInfo() *auth.AuthInfo {
	return &auth.AuthInfo{
		User: auth.ProviderUser{
			ID: testDID,
			LinkedAccounts: []auth.LinkedAccount{{
				Type:             auth.LinkedTypeWallet,
				Address:          testWalletAddress,
				ConnectorType:    "embedded",
				WalletClientType: "piazza",
			}},
		},
		IsNewUser:   true,
		LoginMethod: "wallet",
		AuthToken:   testAuthToken,
	}
}

func backendAccount() *account.Account {
	return &account.Account{
		DID:            testDID,
		OrganizationID: testAPIKey,
		WalletAddress:  testWalletAddress,
		E2ESecret:      hex.EncodeToString([]byte("e2e-session-secret-material")),
		E2ESecretIV:    hex.EncodeToString([]byte("0123456789abcdef")),
	}
}

// serveAuth installs a backend handler answering POST /auth with the given
// account, asserting the request shape on the way through.
func (f *testFixture) serveAuth(t *testing.T, acct *account.Account) {
	t.Helper()
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)
		require.Equal(t, testAPIKey, r.Header.Get("x-api-key"))
		require.Equal(t, "Bearer "+testAuthToken, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, testDID, body["did"])
		require.Equal(t, testWalletAddress, body["walletAddress"])
		require.Contains(t, body, "e2ePublicKey")

		writeEnvelope(t, w, map[string]any{"user": acct})
	})
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, items ...any) {
	t.Helper()
	data := items
	if data == nil {
		data = []any{}
	}
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
}

func TestAuthenticateWalletFullFlow(t *testing.T) {
	f := setupTestFixture(t)
	f.driverCompletesLogin(walletAuthInfo())
	f.serveAuth(t, backendAccount())

	result, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.NoError(t, err)

	require.Equal(t, testAuthToken, result.Auth.SessionToken)
	require.True(t, result.Auth.IsConnected)
	require.True(t, result.Auth.IsNewUser)
	require.Equal(t, "wallet", result.Auth.LoginMethod)
	require.NotNil(t, result.Account)
	require.Equal(t, testDID, result.Account.DID)

	for _, sink := range []*fakeSink{f.trade, f.post, f.oracle, f.chat} {
		tokens, accounts := sink.sessions()
		require.Equal(t, 1, tokens)
		require.Equal(t, 1, accounts)
	}

	count, err := f.store.CountUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAuthenticateProvisionsKeysOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.driverCompletesLogin(walletAuthInfo())
	f.serveAuth(t, backendAccount())

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.NoError(t, err)

	first, err := f.store.GetUser(context.Background(), storage.Key{DID: testDID, OrganizationID: testAPIKey})
	require.NoError(t, err)

	_, err = f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.NoError(t, err)

	count, err := f.store.CountUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	second, err := f.store.GetUser(context.Background(), storage.Key{DID: testDID, OrganizationID: testAPIKey})
	require.NoError(t, err)
	require.Equal(t, first.E2EPublicKey, second.E2EPublicKey)
	require.Equal(t, first.E2EEncryptedPrivateKey, second.E2EEncryptedPrivateKey)
}

func TestAuthenticateEmptyBackendData(t *testing.T) {
	f := setupTestFixture(t)
	f.driverCompletesLogin(walletAuthInfo())
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w)
	})

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.ErrorIs(t, err, auth.InvalidResponseErr)
	require.EqualError(t, err, "Invalid response.")

	count, err := f.store.CountUsers(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)

	tokens, _ := f.trade.sessions()
	require.Zero(t, tokens)
}

func TestAuthenticateNullUser(t *testing.T) {
	f := setupTestFixture(t)
	f.driverCompletesLogin(walletAuthInfo())
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, map[string]any{"user": nil})
	})

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.ErrorIs(t, err, auth.AccessNotGrantedErr)
	require.EqualError(t, err, "Access not granted.")

	tokens, _ := f.chat.sessions()
	require.Zero(t, tokens)
}

func TestAuthenticateMissingWalletAccount(t *testing.T) {
	f := setupTestFixture(t)
	info := walletAuthInfo()
	info.User.LinkedAccounts = nil
	f.driverCompletesLogin(info)

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.ErrorIs(t, err, auth.WalletAccountRequiredErr)
	require.Zero(t, f.backendCalls())
}

func TestAuthenticateExpiredProviderToken(t *testing.T) {
	f := setupTestFixture(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testDID,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	info := walletAuthInfo()
	info.AuthToken = signed
	f.driverCompletesLogin(info)

	_, err = f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.ErrorIs(t, err, auth.ExpiredProviderTokenErr)
	require.Zero(t, f.backendCalls())
}

func TestAuthenticateOptionValidation(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name    string
		options auth.AuthenticationOptions
		wantErr error
	}{
		{"missing type", auth.AuthenticationOptions{}, auth.OptionsTypeRequiredErr},
		{"unknown type", auth.AuthenticationOptions{Type: "carrier-pigeon"}, auth.UnsupportedOptionsTypeErr},
		{"email without address", auth.AuthenticationOptions{Type: auth.TypeEmail, OTPCode: "123456"}, auth.EmailRequiredErr},
		{"email without otp", auth.AuthenticationOptions{Type: auth.TypeEmail, Email: "john.doe@example.com"}, auth.EmailOTPRequiredErr},
		{"sms without phone", auth.AuthenticationOptions{Type: auth.TypeSMS, OTPCode: "123456"}, auth.PhoneRequiredErr},
		{"sms without otp", auth.AuthenticationOptions{Type: auth.TypeSMS, Phone: "+15550100"}, auth.PhoneOTPRequiredErr},
		{"oauth without provider", auth.AuthenticationOptions{Type: auth.TypeOAuth}, auth.OAuthProviderRequiredErr},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Authenticate(context.Background(), tc.options)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
	require.Zero(t, f.backendCalls())
}

func TestAuthenticateDriverError(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventAuthenticateWallet, func(payload any) {
		req := payload.(auth.WalletAuthRequest)
		f.bus.Emit(auth.EventLoginError, &auth.DriverError{
			FlowID:  req.FlowID,
			Code:    "otp_rejected",
			Message: "the provider rejected the login",
		})
	})

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.Error(t, err)

	var driverErr *auth.DriverError
	require.ErrorAs(t, err, &driverErr)
	require.Equal(t, "otp_rejected", driverErr.Code)
	require.Zero(t, f.backendCalls())
}

func TestAuthenticateContextExpiry(t *testing.T) {
	f := setupTestFixture(t)

	// No driver attached: the request event goes unanswered.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.service.Authenticate(ctx, auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLinkEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventLinkEmail, func(payload any) {
		req := payload.(auth.EmailOTPAuthRequest)
		require.Equal(t, "john.doe@example.com", req.Email)
		info := walletAuthInfo()
		info.FlowID = req.FlowID
		f.bus.Emit(auth.EventLinkAccountComplete, info)
	})
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkAccount", r.URL.Path)
		writeEnvelope(t, w, map[string]any{"link": map[string]any{"status": true}})
	})

	info, err := f.service.Link(context.Background(), auth.AuthenticationOptions{
		Type:    auth.TypeEmail,
		Email:   "john.doe@example.com",
		OTPCode: "123456",
	})
	require.NoError(t, err)
	require.Equal(t, testDID, info.User.ID)
}

func TestLinkRejectedByBackend(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventLinkEmail, func(payload any) {
		req := payload.(auth.EmailOTPAuthRequest)
		info := walletAuthInfo()
		info.FlowID = req.FlowID
		f.bus.Emit(auth.EventLinkAccountComplete, info)
	})
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, map[string]any{"link": map[string]any{"status": false}})
	})

	_, err := f.service.Link(context.Background(), auth.AuthenticationOptions{
		Type:    auth.TypeEmail,
		Email:   "john.doe@example.com",
		OTPCode: "123456",
	})
	require.ErrorIs(t, err, auth.AccountUpdateErr)
	require.EqualError(t, err, "An error occured while updating the account.")
}

func TestLinkOAuthCompletesOverLoginEvent(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventLinkOAuth, func(payload any) {
		req := payload.(auth.OAuthRequest)
		require.Equal(t, "google", req.Provider)
		info := walletAuthInfo()
		info.FlowID = req.FlowID
		// Same-session OAuth links report through the login-complete event.
		f.bus.Emit(auth.EventLoginComplete, info)
	})
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkAccount", r.URL.Path)
		writeEnvelope(t, w, map[string]any{"link": map[string]any{"status": true}})
	})

	info, err := f.service.Link(context.Background(), auth.AuthenticationOptions{
		Type:     auth.TypeOAuth,
		Provider: "google",
	})
	require.NoError(t, err)
	require.Equal(t, testDID, info.User.ID)
}

func TestUnlinkReportsDriverStatusVerbatim(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventUnlinkRequest, func(payload any) {
		req := payload.(auth.UnlinkRequest)
		require.Equal(t, "twitter", req.Method)
		f.bus.Emit(auth.EventUnlinkComplete, auth.UnlinkResult{FlowID: req.FlowID, Status: false})
	})

	status, err := f.service.Unlink(context.Background(), "twitter")
	require.NoError(t, err)
	require.False(t, status)
}

func TestUnlinkUnsupportedMethod(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Unlink(context.Background(), "fax")
	require.ErrorIs(t, err, auth.UnsupportedUnlinkErr)
}

func TestUnlinkRunsPersister(t *testing.T) {
	f := setupTestFixture(t)

	var persisted []string
	client, err := httpclient.New(f.server.URL, testAPIKey)
	require.NoError(t, err)
	service, err := auth.New(client, f.store, f.bus,
		auth.Sinks{Trade: f.trade, Post: f.post, Oracle: f.oracle, Chat: f.chat},
		auth.WithKeyStrength(keys.StrengthLow),
		auth.WithUnlinkPersister(func(ctx context.Context, method string) error {
			persisted = append(persisted, method)
			return nil
		}),
	)
	require.NoError(t, err)

	f.bus.On(auth.EventUnlinkRequest, func(payload any) {
		req := payload.(auth.UnlinkRequest)
		f.bus.Emit(auth.EventUnlinkComplete, auth.UnlinkResult{FlowID: req.FlowID, Status: true})
	})

	status, err := service.Unlink(context.Background(), "google")
	require.NoError(t, err)
	require.True(t, status)
	require.Equal(t, []string{"google"}, persisted)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventLogoutRequest, func(payload any) {
		req := payload.(auth.LogoutRequest)
		f.bus.Emit(auth.EventLogoutComplete, auth.LogoutResult{FlowID: req.FlowID, Status: true})
	})

	status, err := f.service.Logout(context.Background())
	require.NoError(t, err)
	require.True(t, status)
}

func TestSendEmailOTPCode(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventSendEmailOTPCode, func(payload any) {
		req := payload.(auth.EmailOTPCodeRequest)
		require.Equal(t, "john.doe@example.com", req.Email)
		f.bus.Emit(auth.EventEmailOTPCodeSent, auth.OTPCodeSent{FlowID: req.FlowID, Destination: req.Email})
	})

	require.NoError(t, f.service.SendEmailOTPCode(context.Background(), "john.doe@example.com"))
}

func TestSendPhoneOTPCodeError(t *testing.T) {
	f := setupTestFixture(t)
	f.bus.On(auth.EventSendSMSOTPCode, func(payload any) {
		req := payload.(auth.SMSOTPCodeRequest)
		f.bus.Emit(auth.EventSMSOTPCodeSentError, &auth.DriverError{
			FlowID:  req.FlowID,
			Code:    "rate_limited",
			Message: "too many codes requested",
		})
	})

	err := f.service.SendPhoneOTPCode(context.Background(), "+15550100")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate_limited")
}

func TestReady(t *testing.T) {
	f := setupTestFixture(t)

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.bus.Emit(auth.EventProviderReady, nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.True(t, f.service.Ready(ctx))
}

func TestReadyTimesOut(t *testing.T) {
	f := setupTestFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.False(t, f.service.Ready(ctx))
}

// awaitEvent registers a callback for a public event and returns a channel
// carrying its first payload. The redirect-resumed exchanges run on their own
// goroutine, so the tests below receive with a timeout instead of blocking on
// a method call.
func (f *testFixture) awaitEvent(eventName string) <-chan any {
	ch := make(chan any, 1)
	f.bus.On(eventName, func(payload any) {
		select {
		case ch <- payload:
		default:
		}
	})
	return ch
}

func receiveEvent(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

// An OAuth provider resumes the app with no pending call to settle: the
// exchange outcome must travel over the public auth event, with the session
// fanned out and keys provisioned exactly as in the blocking flow.
func TestOAuthRedirectResumeAuth(t *testing.T) {
	f := setupTestFixture(t)
	f.serveAuth(t, backendAccount())
	authEvents := f.awaitEvent(auth.EventAuth)

	f.bus.Emit(auth.EventOAuthAuthenticated, walletAuthInfo())

	payload := receiveEvent(t, authEvents)
	result, ok := payload.(*auth.AuthResult)
	require.True(t, ok)
	require.Equal(t, testAuthToken, result.Auth.SessionToken)
	require.True(t, result.Auth.IsConnected)
	require.Equal(t, testDID, result.Account.DID)

	for _, sink := range []*fakeSink{f.trade, f.post, f.oracle, f.chat} {
		tokens, accounts := sink.sessions()
		require.Equal(t, 1, tokens)
		require.Equal(t, 1, accounts)
	}

	count, err := f.store.CountUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// An empty backend envelope on the redirect-resumed path is reported as the
// no-backend-response error on the public error event, not as the blocking
// flow's invalid-response error.
func TestOAuthRedirectResumeAuthBackendFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w)
	})
	errEvents := f.awaitEvent(auth.EventAuthError)

	f.bus.Emit(auth.EventOAuthAuthenticated, walletAuthInfo())

	payload := receiveEvent(t, errEvents)
	err, ok := payload.(error)
	require.True(t, ok)
	require.ErrorIs(t, err, auth.NoBackendResponseErr)
	require.NotErrorIs(t, err, auth.InvalidResponseErr)

	tokens, _ := f.trade.sessions()
	require.Zero(t, tokens)
	count, countErr := f.store.CountUsers(context.Background())
	require.NoError(t, countErr)
	require.Zero(t, count)
}

func TestOAuthRedirectResumeLink(t *testing.T) {
	f := setupTestFixture(t)
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkAccount", r.URL.Path)
		writeEnvelope(t, w, map[string]any{"link": map[string]any{"status": true}})
	})
	linkEvents := f.awaitEvent(auth.EventLink)

	f.bus.Emit(auth.EventOAuthLinkAuthenticated, walletAuthInfo())

	payload := receiveEvent(t, linkEvents)
	info, ok := payload.(*auth.AuthInfo)
	require.True(t, ok)
	require.Equal(t, testDID, info.User.ID)
}

func TestOAuthRedirectResumeLinkRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.setHandler(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, map[string]any{"link": map[string]any{"status": false}})
	})
	errEvents := f.awaitEvent(auth.EventLinkError)

	f.bus.Emit(auth.EventOAuthLinkAuthenticated, walletAuthInfo())

	payload := receiveEvent(t, errEvents)
	err, ok := payload.(error)
	require.True(t, ok)
	require.ErrorIs(t, err, auth.AccountUpdateErr)
}

// Swapping storage through Config rebuilds the key provisioner on the new
// store, so the next login provisions there instead of the old one.
func TestConfigSwapsStorage(t *testing.T) {
	f := setupTestFixture(t)
	f.driverCompletesLogin(walletAuthInfo())
	f.serveAuth(t, backendAccount())

	replacement := storefakes.NewFakeStore()
	require.NoError(t, f.service.Config(auth.ClientConfig{Storage: replacement}))

	_, err := f.service.Authenticate(context.Background(), auth.AuthenticationOptions{Type: auth.TypeWallet})
	require.NoError(t, err)

	count, err := replacement.CountUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = f.store.CountUsers(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}
