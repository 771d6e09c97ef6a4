package auth

// Internal event names shared with the provider-driver integration layer.
// Request events are emitted by this package and consumed by the driver;
// completion events travel the other way. The driver is expected to echo the
// FlowID carried by a request payload in the matching completion payload;
// drivers that do not track flows may leave it empty, at the cost of the
// legacy cross-delivery hazard when identical flows run concurrently.
const (
	EventAuthenticateEmail  = "__authenticateMobileEmail"
	EventAuthenticateSMS    = "__authenticateMobileSMS"
	EventAuthenticateOAuth  = "__authenticateMobileOAuth"
	EventAuthenticateWallet = "__authenticateMobileWallet"

	EventLinkEmail  = "__linkMobileEmail"
	EventLinkSMS    = "__linkMobileSMS"
	EventLinkOAuth  = "__linkMobileOAuth"
	EventLinkWallet = "__linkMobileWallet"

	EventSendEmailOTPCode          = "__sendEmailOTPCode"
	EventSendSMSOTPCode            = "__sendSMSOTPCode"
	EventSendEmailOTPCodeAfterAuth = "__sendEmailOTPCodeAfterAuth"
	EventSendSMSOTPCodeAfterAuth   = "__sendSMSOTPCodeAfterAuth"

	EventLogoutRequest = "__logout"
	EventUnlinkRequest = "__unlink"

	EventLoginComplete = "__onLoginComplete"
	EventLoginError    = "__onLoginError"

	EventLinkAccountComplete = "__onLinkAccountComplete"
	EventLinkAccountError    = "__onLinkAccountError"

	// Fired when the provider resumes the app after an external OAuth
	// redirect; there is no pending call to settle on this path.
	EventOAuthAuthenticated     = "__onOAuthAuthenticatedMobile"
	EventOAuthLinkAuthenticated = "__onOAuthLinkAuthenticatedMobile"

	EventEmailOTPCodeSent               = "__onEmailOTPCodeSent"
	EventEmailOTPCodeSentError          = "__onEmailOTPCodeSentError"
	EventSMSOTPCodeSent                 = "__onSMSOTPCodeSent"
	EventSMSOTPCodeSentError            = "__onSMSOTPCodeSentError"
	EventEmailOTPCodeAfterAuthSent      = "__onEmailOTPCodeAfterAuthSent"
	EventEmailOTPCodeAfterAuthSentError = "__onEmailOTPCodeAfterAuthSentError"
	EventSMSOTPCodeAfterAuthSent        = "__onSMSOTPCodeAfterAuthSent"
	EventSMSOTPCodeAfterAuthSentError   = "__onSMSOTPCodeSentAfterAuthError"

	EventLogoutComplete = "__onLogoutComplete"

	EventUnlinkComplete = "__onUnlinkAccountComplete"
	EventUnlinkError    = "__onUnlinkAccountError"

	EventProviderReady = "__onProviderReady"
)

// Public event names emitted toward SDK consumers.
const (
	EventAuth      = "auth"
	EventLink      = "link"
	EventAuthError = "onAuthError"
	EventLinkError = "onLinkError"
)

// ProviderUser is the identity-provider's view of the user.
type ProviderUser struct {
	ID             string          `json:"id"`
	LinkedAccounts []LinkedAccount `json:"linked_accounts"`
}

// AuthInfo is the credential payload a driver delivers on a completed
// provider-side login or link.
type AuthInfo struct {
	FlowID                  string       `json:"-"`
	User                    ProviderUser `json:"user"`
	IsNewUser               bool         `json:"isNewUser"`
	WasAlreadyAuthenticated bool         `json:"wasAlreadyAuthenticated"`
	LoginMethod             string       `json:"loginMethod"`
	AuthToken               string       `json:"authToken"`
}

func (i *AuthInfo) EventFlowID() string { return i.FlowID }

// DriverError is a provider-side failure surfaced through an error event.
type DriverError struct {
	FlowID  string
	Code    string
	Message string
}

func (e *DriverError) EventFlowID() string { return e.FlowID }

func (e *DriverError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Request payloads emitted toward the driver.

type EmailOTPAuthRequest struct {
	FlowID string
	Email  string
	OTP    string
}

type SMSOTPAuthRequest struct {
	FlowID string
	Phone  string
	OTP    string
}

type OAuthRequest struct {
	FlowID   string
	Provider string
}

type WalletAuthRequest struct {
	FlowID string
	Wallet string
}

type EmailOTPCodeRequest struct {
	FlowID string
	Email  string
}

type SMSOTPCodeRequest struct {
	FlowID string
	Phone  string
}

type UnlinkRequest struct {
	FlowID string
	Method string
}

type LogoutRequest struct {
	FlowID string
}

func (r EmailOTPAuthRequest) EventFlowID() string { return r.FlowID }
func (r SMSOTPAuthRequest) EventFlowID() string { return r.FlowID }
func (r OAuthRequest) EventFlowID() string { return r.FlowID }
func (r WalletAuthRequest) EventFlowID() string { return r.FlowID }
func (r EmailOTPCodeRequest) EventFlowID() string { return r.FlowID }
func (r SMSOTPCodeRequest) EventFlowID() string { return r.FlowID }
func (r UnlinkRequest) EventFlowID() string { return r.FlowID }
func (r LogoutRequest) EventFlowID() string { return r.FlowID }

// Completion payloads delivered by the driver.

type OTPCodeSent struct {
	FlowID      string
	Destination string
}

func (p OTPCodeSent) EventFlowID() string { return p.FlowID }

type UnlinkResult struct {
	FlowID string
	Status bool
}

func (p UnlinkResult) EventFlowID() string { return p.FlowID }

type LogoutResult struct {
	FlowID string
	Status bool
}

func (p LogoutResult) EventFlowID() string { return p.FlowID }
