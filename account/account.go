// Package account holds the identity projection returned by the Piazza
// backend after a successful authentication, together with the per-provider
// sub-records derived from it.
package account

import "time"

// Account is the backend's view of an authenticated user. The flat provider
// fields mirror the parameter set exchanged during authentication: a field is
// non-nil exactly when the corresponding identity provider is currently
// linked. The struct doubles as the decode target for the `user` object of
// the /auth response envelope.
type Account struct {
	DID            string `json:"did"`
	OrganizationID string `json:"organizationId"`

	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`

	IsVerified bool `json:"isVerified"`
	IsNft      bool `json:"isNft"`

	WalletAddress        string `json:"walletAddress"`
	WalletConnectorType  string `json:"walletConnectorType"`
	WalletImported       bool   `json:"walletImported"`
	WalletRecoveryMethod string `json:"walletRecoveryMethod"`
	WalletClientType     string `json:"walletClientType"`

	AppleSubject *string `json:"appleSubject"`
	AppleEmail   *string `json:"appleEmail"`

	DiscordSubject  *string `json:"discordSubject"`
	DiscordEmail    *string `json:"discordEmail"`
	DiscordUsername *string `json:"discordUsername"`

	FarcasterFid             *int64  `json:"farcasterFid"`
	FarcasterDisplayName     *string `json:"farcasterDisplayName"`
	FarcasterOwnerAddress    *string `json:"farcasterOwnerAddress"`
	FarcasterPfp             *string `json:"farcasterPfp"`
	FarcasterSignerPublicKey *string `json:"farcasterSignerPublicKey"`
	FarcasterURL             *string `json:"farcasterUrl"`
	FarcasterUsername        *string `json:"farcasterUsername"`

	GithubSubject  *string `json:"githubSubject"`
	GithubEmail    *string `json:"githubEmail"`
	GithubName     *string `json:"githubName"`
	GithubUsername *string `json:"githubUsername"`

	GoogleSubject *string `json:"googleSubject"`
	GoogleEmail   *string `json:"googleEmail"`
	GoogleName    *string `json:"googleName"`

	InstagramSubject  *string `json:"instagramSubject"`
	InstagramUsername *string `json:"instagramUsername"`

	LinkedinSubject    *string `json:"linkedinSubject"`
	LinkedinEmail      *string `json:"linkedinEmail"`
	LinkedinName       *string `json:"linkedinName"`
	LinkedinVanityName *string `json:"linkedinVanityName"`

	SpotifySubject *string `json:"spotifySubject"`
	SpotifyEmail   *string `json:"spotifyEmail"`
	SpotifyName    *string `json:"spotifyName"`

	TelegramUserID    *string `json:"telegramUserId"`
	TelegramFirstName *string `json:"telegramFirstName"`
	TelegramLastName  *string `json:"telegramLastName"`
	TelegramPhotoURL  *string `json:"telegramPhotoUrl"`
	TelegramUsername  *string `json:"telegramUsername"`

	TiktokSubject  *string `json:"tiktokSubject"`
	TiktokName     *string `json:"tiktokName"`
	TiktokUsername *string `json:"tiktokUsername"`

	TwitterSubject           *string `json:"twitterSubject"`
	TwitterName              *string `json:"twitterName"`
	TwitterProfilePictureURL *string `json:"twitterProfilePictureUrl"`
	TwitterUsername          *string `json:"twitterUsername"`

	Phone *string `json:"phone"`

	AllowNotification       bool   `json:"allowNotification"`
	AllowNotificationSound  bool   `json:"allowNotificationSound"`
	Visibility              string `json:"visibility"`
	OnlineStatus            string `json:"onlineStatus"`
	AllowReadReceipt        bool   `json:"allowReadReceipt"`
	AllowReceiveMessageFrom string `json:"allowReceiveMessageFrom"`
	AllowAddToGroupsFrom    string `json:"allowAddToGroupsFrom"`
	AllowGroupsSuggestion   bool   `json:"allowGroupsSuggestion"`

	// Secret material delivered by the authenticated session, hex encoded.
	// Used to encrypt the locally generated E2E private key; never persisted
	// by this SDK in plaintext alongside the keys it protects.
	E2ESecret   string `json:"e2eSecret"`
	E2ESecretIV string `json:"e2eSecretIV"`

	E2EPublicKey           string `json:"e2ePublicKey"`
	E2EEncryptedPrivateKey string `json:"e2eEncryptedPrivateKey"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Wallet is the embedded or connected wallet of an account. Every account
// has one; authentication without a wallet is rejected before reaching the
// backend.
type Wallet struct {
	Address       string
	ConnectorType string
}

type AppleIdentity struct {
	Subject string
	Email   *string
}

type DiscordIdentity struct {
	Subject  string
	Email    *string
	Username *string
}

type FarcasterIdentity struct {
	Fid          int64
	DisplayName  *string
	OwnerAddress *string
	Pfp          *string
	Username     *string
}

type GithubIdentity struct {
	Subject  string
	Email    *string
	Name     *string
	Username *string
}

type GoogleIdentity struct {
	Subject string
	Email   *string
	Name    *string
}

type InstagramIdentity struct {
	Subject  string
	Username *string
}

type LinkedinIdentity struct {
	Subject    string
	Email      *string
	Name       *string
	VanityName *string
}

type SpotifyIdentity struct {
	Subject string
	Email   *string
	Name    *string
}

type TelegramIdentity struct {
	UserID    string
	FirstName *string
	LastName  *string
	PhotoURL  *string
	Username  *string
}

type TiktokIdentity struct {
	Subject  string
	Name     *string
	Username *string
}

type TwitterIdentity struct {
	Subject           string
	Name              *string
	ProfilePictureURL *string
	Username          *string
}

// Wallet returns the account's wallet sub-record.
func (a *Account) Wallet() Wallet {
	return Wallet{Address: a.WalletAddress, ConnectorType: a.WalletConnectorType}
}

// Apple returns the linked Apple identity, or nil when Apple is not linked.
func (a *Account) Apple() *AppleIdentity {
	if a.AppleSubject == nil {
		return nil
	}
	return &AppleIdentity{Subject: *a.AppleSubject, Email: a.AppleEmail}
}

func (a *Account) Discord() *DiscordIdentity {
	if a.DiscordSubject == nil {
		return nil
	}
	return &DiscordIdentity{
		Subject:  *a.DiscordSubject,
		Email:    a.DiscordEmail,
		Username: a.DiscordUsername,
	}
}

func (a *Account) Farcaster() *FarcasterIdentity {
	if a.FarcasterFid == nil {
		return nil
	}
	return &FarcasterIdentity{
		Fid:          *a.FarcasterFid,
		DisplayName:  a.FarcasterDisplayName,
		OwnerAddress: a.FarcasterOwnerAddress,
		Pfp:          a.FarcasterPfp,
		Username:     a.FarcasterUsername,
	}
}

func (a *Account) Github() *GithubIdentity {
	if a.GithubSubject == nil {
		return nil
	}
	return &GithubIdentity{
		Subject:  *a.GithubSubject,
		Email:    a.GithubEmail,
		Name:     a.GithubName,
		Username: a.GithubUsername,
	}
}

func (a *Account) Google() *GoogleIdentity {
	if a.GoogleSubject == nil {
		return nil
	}
	return &GoogleIdentity{
		Subject: *a.GoogleSubject,
		Email:   a.GoogleEmail,
		Name:    a.GoogleName,
	}
}

func (a *Account) Instagram() *InstagramIdentity {
	if a.InstagramSubject == nil {
		return nil
	}
	return &InstagramIdentity{
		Subject:  *a.InstagramSubject,
		Username: a.InstagramUsername,
	}
}

func (a *Account) Linkedin() *LinkedinIdentity {
	if a.LinkedinSubject == nil {
		return nil
	}
	return &LinkedinIdentity{
		Subject:    *a.LinkedinSubject,
		Email:      a.LinkedinEmail,
		Name:       a.LinkedinName,
		VanityName: a.LinkedinVanityName,
	}
}

func (a *Account) Spotify() *SpotifyIdentity {
	if a.SpotifySubject == nil {
		return nil
	}
	return &SpotifyIdentity{
		Subject: *a.SpotifySubject,
		Email:   a.SpotifyEmail,
		Name:    a.SpotifyName,
	}
}

func (a *Account) Telegram() *TelegramIdentity {
	if a.TelegramUserID == nil {
		return nil
	}
	return &TelegramIdentity{
		UserID:    *a.TelegramUserID,
		FirstName: a.TelegramFirstName,
		LastName:  a.TelegramLastName,
		PhotoURL:  a.TelegramPhotoURL,
		Username:  a.TelegramUsername,
	}
}

func (a *Account) Tiktok() *TiktokIdentity {
	if a.TiktokSubject == nil {
		return nil
	}
	return &TiktokIdentity{
		Subject:  *a.TiktokSubject,
		Name:     a.TiktokName,
		Username: a.TiktokUsername,
	}
}

func (a *Account) Twitter() *TwitterIdentity {
	if a.TwitterSubject == nil {
		return nil
	}
	return &TwitterIdentity{
		Subject:           *a.TwitterSubject,
		Name:              a.TwitterName,
		ProfilePictureURL: a.TwitterProfilePictureURL,
		Username:          a.TwitterUsername,
	}
}
