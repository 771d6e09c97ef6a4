package auth

import "github.com/piazza-xyz/piazza-go/internal/utils"

// AuthParams is the canonical parameter set sent to the backend: one flat,
// fully keyed record built from whatever subset of providers the user has
// linked. Pointer fields serialize to explicit JSON nulls when the provider
// (or the individual attribute) is absent; nothing is omitted.
type AuthParams struct {
	DID string `json:"did"`

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

	GoogleEmail   *string `json:"googleEmail"`
	GoogleName    *string `json:"googleName"`
	GoogleSubject *string `json:"googleSubject"`

	InstagramSubject  *string `json:"instagramSubject"`
	InstagramUsername *string `json:"instagramUsername"`

	LinkedinEmail      *string `json:"linkedinEmail"`
	LinkedinName       *string `json:"linkedinName"`
	LinkedinSubject    *string `json:"linkedinSubject"`
	LinkedinVanityName *string `json:"linkedinVanityName"`

	SpotifyEmail   *string `json:"spotifyEmail"`
	SpotifyName    *string `json:"spotifyName"`
	SpotifySubject *string `json:"spotifySubject"`

	TelegramFirstName *string `json:"telegramFirstName"`
	TelegramLastName  *string `json:"telegramLastName"`
	TelegramPhotoURL  *string `json:"telegramPhotoUrl"`
	TelegramUserID    *string `json:"telegramUserId"`
	TelegramUsername  *string `json:"telegramUsername"`

	TiktokName     *string `json:"tiktokName"`
	TiktokSubject  *string `json:"tiktokSubject"`
	TiktokUsername *string `json:"tiktokUsername"`

	TwitterName              *string `json:"twitterName"`
	TwitterSubject           *string `json:"twitterSubject"`
	TwitterProfilePictureURL *string `json:"twitterProfilePictureUrl"`
	TwitterUsername          *string `json:"twitterUsername"`

	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// FormatAuthParams normalizes the provider's linked-accounts array into the
// canonical parameter set. The wallet entry is mandatory: every account has
// at least an embedded or connected wallet, so its absence is a fatal
// precondition rather than a recoverable null.
func FormatAuthParams(info *AuthInfo) (*AuthParams, error) {
	accounts := info.User.LinkedAccounts

	wallet := findLinked(accounts, LinkedTypeWallet)
	if wallet == nil {
		return nil, WalletAccountRequiredErr
	}

	apple := findLinked(accounts, LinkedTypeApple)
	discord := findLinked(accounts, LinkedTypeDiscord)
	farcaster := findLinked(accounts, LinkedTypeFarcaster)
	github := findLinked(accounts, LinkedTypeGithub)
	google := findLinked(accounts, LinkedTypeGoogle)
	instagram := findLinked(accounts, LinkedTypeInstagram)
	linkedin := findLinked(accounts, LinkedTypeLinkedin)
	spotify := findLinked(accounts, LinkedTypeSpotify)
	telegram := findLinked(accounts, LinkedTypeTelegram)
	tiktok := findLinked(accounts, LinkedTypeTiktok)
	twitter := findLinked(accounts, LinkedTypeTwitter)
	phone := findLinked(accounts, LinkedTypePhone)
	email := findLinked(accounts, LinkedTypeEmail)

	params := &AuthParams{
		DID:                  info.User.ID,
		WalletAddress:        wallet.Address,
		WalletConnectorType:  wallet.ConnectorType,
		WalletImported:       false,
		WalletRecoveryMethod: "",
		WalletClientType:     wallet.WalletClientType,
	}

	if apple != nil {
		params.AppleSubject = apple.Subject
		params.AppleEmail = apple.Email
	}
	if discord != nil {
		params.DiscordSubject = discord.Subject
		params.DiscordEmail = discord.Email
		params.DiscordUsername = discord.Username
	}
	if farcaster != nil {
		params.FarcasterFid = farcaster.Fid
		// Display name and profile picture default to empty strings when
		// farcaster is linked but the attribute is missing upstream.
		params.FarcasterDisplayName = utils.Ptr(utils.Value(farcaster.DisplayName))
		params.FarcasterOwnerAddress = farcaster.OwnerAddress
		params.FarcasterPfp = utils.Ptr(utils.Value(farcaster.ProfilePictureURL))
		params.FarcasterSignerPublicKey = farcaster.SignerPublicKey
		params.FarcasterURL = farcaster.HomepageURL
		params.FarcasterUsername = farcaster.Username
	}
	if github != nil {
		params.GithubSubject = github.Subject
		params.GithubEmail = github.Email
		params.GithubName = github.Name
		params.GithubUsername = github.Username
	}
	if google != nil {
		params.GoogleEmail = google.Email
		params.GoogleName = google.Name
		params.GoogleSubject = google.Subject
	}
	if instagram != nil {
		params.InstagramSubject = instagram.Subject
		params.InstagramUsername = instagram.Username
	}
	if linkedin != nil {
		params.LinkedinEmail = linkedin.Email
		params.LinkedinName = linkedin.Name
		params.LinkedinSubject = linkedin.Subject
		params.LinkedinVanityName = linkedin.VanityName
	}
	if spotify != nil {
		params.SpotifyEmail = spotify.Email
		params.SpotifyName = spotify.Name
		params.SpotifySubject = spotify.Subject
	}
	if telegram != nil {
		params.TelegramFirstName = telegram.FirstName
		params.TelegramLastName = telegram.LastName
		params.TelegramPhotoURL = telegram.PhotoURL
		params.TelegramUserID = telegram.TelegramUserID
		params.TelegramUsername = telegram.Username
	}
	if tiktok != nil {
		params.TiktokName = tiktok.Name
		params.TiktokSubject = tiktok.Subject
		params.TiktokUsername = tiktok.Username
	}
	if twitter != nil {
		params.TwitterName = twitter.Name
		params.TwitterSubject = twitter.Subject
		params.TwitterProfilePictureURL = twitter.ProfilePictureURL
		params.TwitterUsername = twitter.Username
	}
	if phone != nil {
		params.Phone = phone.PhoneNumber
	}
	if email != nil {
		params.Email = utils.Ptr(email.Address)
	}

	return params, nil
}
