package keys

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/piazza-xyz/piazza-go/account"
	"github.com/piazza-xyz/piazza-go/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LocalKeySetupErr is the terminal error for any provisioning failure. The
// underlying cause is logged, not classified: the session is still valid
// server side, but local encryption material is missing and the caller must
// prompt re-provisioning.
var LocalKeySetupErr = errors.New("error during setup of the local keys, check the logs to have more information")

// Provisioner generates the E2E key pair for an account, encrypts the
// private half with the account's secret material and persists the result
// locally.
type Provisioner struct {
	crypto   Crypto
	store    storage.Store
	strength Strength
}

// ProvisionerOption modifies a Provisioner at construction.
type ProvisionerOption func(*Provisioner)

// WithStrength overrides the RSA strength tier (primarily for testing, where
// HIGH-tier generation is too slow).
func WithStrength(strength Strength) ProvisionerOption {
	return func(p *Provisioner) {
		p.strength = strength
	}
}

// NewProvisioner initializes a Provisioner with required dependencies.
func NewProvisioner(crypto Crypto, store storage.Store, options ...ProvisionerOption) (*Provisioner, error) {
	if crypto == nil {
		return nil, errors.New("[NewProvisioner] crypto capability is required")
	}
	if store == nil {
		return nil, errors.New("[NewProvisioner] store is required")
	}

	p := &Provisioner{
		crypto:   crypto,
		store:    store,
		strength: StrengthHigh,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// GenerateKeys requests a key pair from the crypto capability. It returns
// nil on any failure; callers must nil-check before use.
func (p *Provisioner) GenerateKeys() *KeyPair {
	pair, err := p.crypto.GenerateKeys(p.strength)
	if err != nil {
		return nil
	}
	return pair
}

// secretText re-encodes the hex secret material from the account into the
// base64 text form the cipher accepts.
func secretText(hexEncoded string) (string, error) {
	raw, err := hex.DecodeString(hexEncoded)
	if err != nil {
		return "", fmt.Errorf("decode hex secret material: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Provision generates and persists the account's E2E key material. When a
// record already exists for the account's (DID, organization) key the call is
// a no-op: an existing local identity is never overwritten.
func (p *Provisioner) Provision(ctx context.Context, a *account.Account) error {
	if err := p.provision(ctx, a); err != nil {
		log.Error().Err(err).Str("did", a.DID).Msg("local key setup failed")
		return LocalKeySetupErr
	}
	return nil
}

func (p *Provisioner) provision(ctx context.Context, a *account.Account) error {
	pair := p.GenerateKeys()
	if pair == nil {
		return fmt.Errorf("error during generation of public/private keys")
	}

	privatePEM, err := p.crypto.ConvertRSAPrivateKeyToPem(pair.PrivateKey)
	if err != nil {
		return err
	}

	secret, err := secretText(a.E2ESecret)
	if err != nil {
		return err
	}
	secretIV, err := secretText(a.E2ESecretIV)
	if err != nil {
		return err
	}

	// The private key is persisted encrypted only; the plaintext half is
	// recomputed at runtime from the session-delivered secret material.
	encryptedPrivateKey, err := p.crypto.EncryptAESCBC(privatePEM, secret, secretIV)
	if err != nil {
		return err
	}

	publicKey, err := p.crypto.ConvertRSAPublicKeyToPem(pair.PublicKey)
	if err != nil {
		return err
	}

	key := storage.Key{DID: a.DID, OrganizationID: a.OrganizationID}
	if _, err := p.store.GetUser(ctx, key); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return p.store.SaveUser(ctx, storage.NewUserRecord(a, publicKey, encryptedPrivateKey))
}

// LookupE2EPublicKey reads the locally stored public key for the identity.
// A missing record is not an error: the result is nil and the backend
// receives an explicit null. Only store-access failures are returned.
func (p *Provisioner) LookupE2EPublicKey(ctx context.Context, did, organizationID string) (*string, error) {
	record, err := p.store.GetUser(ctx, storage.Key{DID: did, OrganizationID: organizationID})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup e2e public key")
	}
	return &record.E2EPublicKey, nil
}
