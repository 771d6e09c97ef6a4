package auth

import "errors"

var (
	// Input validation, raised before any event is emitted.
	OptionsTypeRequiredErr    = errors.New("authentication options must provide a type")
	UnsupportedOptionsTypeErr = errors.New("unsupported authentication options type")
	EmailRequiredErr          = errors.New("options type is 'email' but no email was provided")
	EmailOTPRequiredErr       = errors.New("options type is 'email' but no OTP code was provided")
	PhoneRequiredErr          = errors.New("options type is 'sms' but no phone number was provided")
	PhoneOTPRequiredErr       = errors.New("options type is 'sms' but no OTP code was provided")
	OAuthProviderRequiredErr  = errors.New("options type is 'oauth' but no provider was provided")
	UnsupportedUnlinkErr      = errors.New("unsupported unlink method")

	// Normalization preconditions.
	WalletAccountRequiredErr = errors.New("linked accounts contain no wallet entry")

	// Provider credential checks.
	ExpiredProviderTokenErr = errors.New("provider token is expired")

	// Backend protocol errors. The message strings are part of the observed
	// contract with consumers and are kept verbatim.
	InvalidResponseErr   = errors.New("Invalid response.")
	NoBackendResponseErr = errors.New("No response from backend during authentication")
	AccessNotGrantedErr  = errors.New("Access not granted.")
	AccountUpdateErr     = errors.New("An error occured while updating the account.")

	// Unexpected driver payloads.
	UnexpectedPayloadErr = errors.New("unexpected payload type on completion event")
)
