package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/piazza-xyz/piazza-go/account"
	"github.com/rs/zerolog/log"
)

type apiResponse[T any] struct {
	Data []T `json:"data"`
}

type authPayload struct {
	User *account.Account `json:"user"`
}

type linkStatus struct {
	Status bool `json:"status"`
}

type linkPayload struct {
	Link *linkStatus `json:"link"`
}

type exchangeBody struct {
	AuthParams
	E2EPublicKey *string `json:"e2ePublicKey"`
}

// checkProviderToken rejects provider bearer tokens that are already expired
// so no backend round trip is wasted on them. Tokens that do not parse as
// JWTs are passed through untouched; signature verification is the
// backend's job either way.
func checkProviderToken(raw string) error {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return ExpiredProviderTokenErr
	}
	return nil
}

func (a *Auth) buildExchangeBody(ctx context.Context, info *AuthInfo) (*exchangeBody, error) {
	if err := checkProviderToken(info.AuthToken); err != nil {
		return nil, err
	}

	params, err := FormatAuthParams(info)
	if err != nil {
		return nil, err
	}

	// The locally provisioned public key travels with every exchange so the
	// backend can hand it to peers; null until first provisioning.
	e2ePublicKey, err := a.provisioner.LookupE2EPublicKey(ctx, info.User.ID, a.client.APIKey())
	if err != nil {
		return nil, err
	}

	return &exchangeBody{AuthParams: *params, E2EPublicKey: e2ePublicKey}, nil
}

// broadcastSession propagates the session token and account to the four
// dependent subsystems, exactly once each.
func (a *Auth) broadcastSession(token string, acct *account.Account) {
	a.sinks.Trade.SetAuthToken(token)
	a.sinks.Oracle.SetAuthToken(token)
	a.sinks.Post.SetAuthToken(token)
	a.sinks.Chat.SetAuthToken(token)

	a.sinks.Chat.SetCurrentAccount(acct)
	a.sinks.Trade.SetCurrentAccount(acct)
	a.sinks.Oracle.SetCurrentAccount(acct)
	a.sinks.Post.SetCurrentAccount(acct)
}

// exchangeAuth performs the backend /auth exchange for a completed
// provider-side login, fans out the session and provisions local keys.
// clearEvents names the listener pair deactivated once the exchange
// succeeds, making the completed flow's events fire-once.
func (a *Auth) exchangeAuth(ctx context.Context, info *AuthInfo, clearEvents ...string) (*AuthResult, error) {
	body, err := a.buildExchangeBody(ctx, info)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse[authPayload]
	if err := a.client.Post(ctx, "/auth", info.AuthToken, body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, InvalidResponseErr
	}
	acct := envelope.Data[0].User
	if acct == nil {
		return nil, AccessNotGrantedErr
	}

	a.broadcastSession(info.AuthToken, acct)
	a.bus.Clear(clearEvents...)

	if err := a.provisioner.Provision(ctx, acct); err != nil {
		return nil, err
	}

	return &AuthResult{
		Auth: Session{
			SessionToken:            info.AuthToken,
			IsConnected:             true,
			LoginMethod:             info.LoginMethod,
			IsNewUser:               info.IsNewUser,
			WasAlreadyAuthenticated: info.WasAlreadyAuthenticated,
		},
		Account: acct,
	}, nil
}

// exchangeLink performs the backend /linkAccount exchange for a completed
// provider-side link.
func (a *Auth) exchangeLink(ctx context.Context, info *AuthInfo, clearEvents ...string) (*AuthInfo, error) {
	body, err := a.buildExchangeBody(ctx, info)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse[linkPayload]
	if err := a.client.Post(ctx, "/linkAccount", info.AuthToken, body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, InvalidResponseErr
	}
	link := envelope.Data[0].Link
	if link == nil || !link.Status {
		return nil, AccountUpdateErr
	}

	a.bus.Clear(clearEvents...)
	return info, nil
}

// resumeAuthAfterOAuthRedirect runs the login exchange when the provider
// resumes the app after an external OAuth redirect. No call is pending
// across the redirect boundary, so the outcome is published on the public
// auth events instead of settling a promise.
func (a *Auth) resumeAuthAfterOAuthRedirect(info *AuthInfo) {
	result, err := a.exchangeAuth(context.Background(), info, EventOAuthAuthenticated, EventLoginError)
	if err != nil {
		if errors.Is(err, InvalidResponseErr) {
			err = NoBackendResponseErr
		}
		log.Error().Err(err).Msg("backend auth exchange after OAuth redirect failed")
		a.bus.Clear(EventOAuthAuthenticated, EventLoginError)
		a.bus.Emit(EventAuthError, err)
		return
	}
	a.bus.Emit(EventAuth, result)
}

// resumeLinkAfterOAuthRedirect is the link counterpart of
// resumeAuthAfterOAuthRedirect.
func (a *Auth) resumeLinkAfterOAuthRedirect(info *AuthInfo) {
	linked, err := a.exchangeLink(context.Background(), info, EventOAuthLinkAuthenticated, EventLinkAccountError)
	if err != nil {
		log.Error().Err(err).Msg("backend link exchange after OAuth redirect failed")
		a.bus.Clear(EventOAuthLinkAuthenticated, EventLinkAccountError)
		a.bus.Emit(EventLinkError, err)
		return
	}
	a.bus.Emit(EventLink, linked)
}
