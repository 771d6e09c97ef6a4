package auth

// Authentication channel discriminators for AuthenticationOptions.
const (
	TypeEmail  = "email"
	TypeSMS    = "sms"
	TypeOAuth  = "oauth"
	TypeWallet = "wallet"
)

// Identity methods accepted by Unlink.
var unlinkMethods = map[string]struct{}{
	"apple":     {},
	"discord":   {},
	"email":     {},
	"farcaster": {},
	"github":    {},
	"google":    {},
	"instagram": {},
	"linkedin":  {},
	"phone":     {},
	"spotify":   {},
	"telegram":  {},
	"tiktok":    {},
	"twitter":   {},
	"wallet":    {},
}

// AuthenticationOptions selects the channel for Authenticate and Link.
// Required sub-fields depend on Type: email/sms need the destination plus the
// OTP code, oauth needs the provider name, wallet needs nothing further.
type AuthenticationOptions struct {
	Type     string
	Email    string
	Phone    string
	OTPCode  string
	Provider string
}

// validate fails fast on missing sub-fields so no round trip is wasted on a
// request the driver would reject anyway.
func (o AuthenticationOptions) validate() error {
	switch o.Type {
	case TypeEmail:
		if o.Email == "" {
			return EmailRequiredErr
		}
		if o.OTPCode == "" {
			return EmailOTPRequiredErr
		}
	case TypeSMS:
		if o.Phone == "" {
			return PhoneRequiredErr
		}
		if o.OTPCode == "" {
			return PhoneOTPRequiredErr
		}
	case TypeOAuth:
		if o.Provider == "" {
			return OAuthProviderRequiredErr
		}
	case TypeWallet:
		// Only the embedded metamask connector is supported for now; no
		// sub-fields to check.
	case "":
		return OptionsTypeRequiredErr
	default:
		return UnsupportedOptionsTypeErr
	}
	return nil
}
