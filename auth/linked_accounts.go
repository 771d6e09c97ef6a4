package auth

// Linked-account type discriminators used by the identity provider.
const (
	LinkedTypeWallet    = "wallet"
	LinkedTypeApple     = "apple_oauth"
	LinkedTypeDiscord   = "discord_oauth"
	LinkedTypeFarcaster = "farcaster"
	LinkedTypeGithub    = "github_oauth"
	LinkedTypeGoogle    = "google_oauth"
	LinkedTypeInstagram = "instagram_oauth"
	LinkedTypeLinkedin  = "linkedin_oauth"
	LinkedTypeSpotify   = "spotify_oauth"
	LinkedTypeTelegram  = "telegram"
	LinkedTypeTiktok    = "tiktok_oauth"
	LinkedTypeTwitter   = "twitter_oauth"
	LinkedTypePhone     = "phone"
	LinkedTypeEmail     = "email"
)

// LinkedAccount is one row of the heterogeneous linked-accounts array the
// identity provider returns, tagged by Type. Which fields are populated
// depends on the provider; absence is per field, so everything optional is a
// pointer. The field names mirror the provider's wire shape, quirks included
// (telegram's first name is camel-cased upstream while its last name is
// not).
type LinkedAccount struct {
	Type string `json:"type"`

	// Address doubles as the wallet address on wallet entries and the email
	// address on email entries; the provider uses the same wire key for
	// both.
	Address string `json:"address"`

	// wallet
	ConnectorType    string `json:"connector_type"`
	WalletClientType string `json:"wallet_client_type"`

	// oauth providers
	Subject           *string `json:"subject"`
	Email             *string `json:"email"`
	Name              *string `json:"name"`
	Username          *string `json:"username"`
	VanityName        *string `json:"vanity_name"`
	ProfilePictureURL *string `json:"profile_picture_url"`

	// farcaster
	Fid             *int64  `json:"fid"`
	DisplayName     *string `json:"display_name"`
	OwnerAddress    *string `json:"owner_address"`
	SignerPublicKey *string `json:"signer_public_key"`
	HomepageURL     *string `json:"homepage_url"`

	// telegram
	TelegramUserID *string `json:"telegram_user_id"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"last_name"`
	PhotoURL       *string `json:"photo_url"`

	// phone entries
	PhoneNumber *string `json:"phoneNumber"`
}

func findLinked(accounts []LinkedAccount, linkedType string) *LinkedAccount {
	for i := range accounts {
		if accounts[i].Type == linkedType {
			return &accounts[i]
		}
	}
	return nil
}
