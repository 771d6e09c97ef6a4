// Package storage defines the on-device user-record store consumed by the
// key provisioner. Records are keyed by the (DID, organization) tuple; the
// key is structured rather than an interpolated string because both halves
// originate from external identity providers.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/piazza-xyz/piazza-go/account"
)

// ErrNotFound reports that no record exists for the requested key. It is the
// only lookup failure callers are expected to treat as a non-error; anything
// else means the store itself is unavailable.
var ErrNotFound = errors.New("user record not found")

// Key identifies one local user record.
type Key struct {
	DID            string
	OrganizationID string
}

// UserRecord is the locally persisted identity: profile fields, one
// sub-record per linked provider, and the E2E key material. The private key
// is stored encrypted only.
type UserRecord struct {
	DID            string `json:"did"`
	OrganizationID string `json:"organizationId"`

	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`

	IsVerified bool `json:"isVerified"`
	IsNft      bool `json:"isNft"`

	Wallet account.Wallet `json:"wallet"`

	Apple     *account.AppleIdentity     `json:"apple"`
	Discord   *account.DiscordIdentity   `json:"discord"`
	Farcaster *account.FarcasterIdentity `json:"farcaster"`
	Github    *account.GithubIdentity    `json:"github"`
	Google    *account.GoogleIdentity    `json:"google"`
	Instagram *account.InstagramIdentity `json:"instagram"`
	Linkedin  *account.LinkedinIdentity  `json:"linkedin"`
	Spotify   *account.SpotifyIdentity   `json:"spotify"`
	Telegram  *account.TelegramIdentity  `json:"telegram"`
	Tiktok    *account.TiktokIdentity    `json:"tiktok"`
	Twitter   *account.TwitterIdentity   `json:"twitter"`

	AllowNotification       bool   `json:"allowNotification"`
	AllowNotificationSound  bool   `json:"allowNotificationSound"`
	Visibility              string `json:"visibility"`
	OnlineStatus            string `json:"onlineStatus"`
	AllowReadReceipt        bool   `json:"allowReadReceipt"`
	AllowReceiveMessageFrom string `json:"allowReceiveMessageFrom"`
	AllowAddToGroupsFrom    string `json:"allowAddToGroupsFrom"`
	AllowGroupsSuggestion   bool   `json:"allowGroupsSuggestion"`

	E2EPublicKey           string `json:"e2ePublicKey"`
	E2EEncryptedPrivateKey string `json:"e2eEncryptedPrivateKey"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the record's tuple key.
func (r *UserRecord) Key() Key {
	return Key{DID: r.DID, OrganizationID: r.OrganizationID}
}

// NewUserRecord projects an account onto a local record, attaching the
// provisioned key material. Exactly the currently linked providers yield
// non-nil sub-records.
func NewUserRecord(a *account.Account, publicKeyPEM, encryptedPrivateKeyPEM string) *UserRecord {
	return &UserRecord{
		DID:                     a.DID,
		OrganizationID:          a.OrganizationID,
		Username:                a.Username,
		Email:                   a.Email,
		Bio:                     a.Bio,
		AvatarURL:               a.AvatarURL,
		IsVerified:              a.IsVerified,
		IsNft:                   a.IsNft,
		Wallet:                  a.Wallet(),
		Apple:                   a.Apple(),
		Discord:                 a.Discord(),
		Farcaster:               a.Farcaster(),
		Github:                  a.Github(),
		Google:                  a.Google(),
		Instagram:               a.Instagram(),
		Linkedin:                a.Linkedin(),
		Spotify:                 a.Spotify(),
		Telegram:                a.Telegram(),
		Tiktok:                  a.Tiktok(),
		Twitter:                 a.Twitter(),
		AllowNotification:       a.AllowNotification,
		AllowNotificationSound:  a.AllowNotificationSound,
		Visibility:              a.Visibility,
		OnlineStatus:            a.OnlineStatus,
		AllowReadReceipt:        a.AllowReadReceipt,
		AllowReceiveMessageFrom: a.AllowReceiveMessageFrom,
		AllowAddToGroupsFrom:    a.AllowAddToGroupsFrom,
		AllowGroupsSuggestion:   a.AllowGroupsSuggestion,
		E2EPublicKey:            publicKeyPEM,
		E2EEncryptedPrivateKey:  encryptedPrivateKeyPEM,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
}

// Store is the interface for local user-record storage operations.
type Store interface {
	// GetUser retrieves the record for key, returning ErrNotFound when no
	// record exists.
	GetUser(ctx context.Context, key Key) (*UserRecord, error)

	// SaveUser writes the record in a single transaction.
	SaveUser(ctx context.Context, record *UserRecord) error

	// CountUsers reports the number of stored records.
	CountUsers(ctx context.Context) (int, error)

	// Close releases the underlying store.
	Close() error
}
