// Package keys provisions the end-to-end encryption key pair for an account
// and answers local public-key lookups. Cryptography primitives are consumed
// through the Crypto capability; StdCrypto is the default implementation.
package keys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key strength tiers for RSA generation.
type Strength string

const (
	StrengthLow    Strength = "LOW"
	StrengthMedium Strength = "MEDIUM"
	StrengthHigh   Strength = "HIGH"
)

// KeyPair represents a generated public/private key pair.
type KeyPair struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// Crypto is the cryptography capability consumed by the provisioner and the
// chat subsystem. Key and IV arguments are base64 encoded raw bytes.
type Crypto interface {
	GenerateKeys(strength Strength) (*KeyPair, error)
	ConvertRSAPrivateKeyToPem(key *rsa.PrivateKey) (string, error)
	ConvertRSAPublicKeyToPem(key *rsa.PublicKey) (string, error)
	EncryptAESCBC(plaintext, keyB64, ivB64 string) (string, error)
	DecryptAESCBC(ciphertextB64, keyB64, ivB64 string) (string, error)
}

// StdCrypto implements Crypto on the standard crypto packages.
type StdCrypto struct{}

var _ Crypto = StdCrypto{}

func bitsForStrength(strength Strength) int {
	switch strength {
	case StrengthHigh:
		return 4096
	case StrengthMedium:
		return 3072
	default:
		return 2048
	}
}

// GenerateKeys generates a new RSA key pair for the requested strength tier.
// Anything below 2048 bits is refused, so LOW maps to 2048.
func (StdCrypto) GenerateKeys(strength Strength) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bitsForStrength(strength))
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// ConvertRSAPrivateKeyToPem exports the private key as a PKCS#8 PEM block.
func (StdCrypto) ConvertRSAPrivateKeyToPem(key *rsa.PrivateKey) (string, error) {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	})
	return string(keyPEM), nil
}

// ConvertRSAPublicKeyToPem exports the public key as a PKIX PEM block.
func (StdCrypto) ConvertRSAPublicKeyToPem(key *rsa.PublicKey) (string, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pubKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	})
	return string(pubKeyPEM), nil
}

// pbkdf2Iterations is used when provided key material is not already a legal
// AES key length and must be stretched.
const pbkdf2Iterations = 4096

func aesKey(keyB64, ivRaw []byte) ([]byte, error) {
	switch len(keyB64) {
	case 16, 24, 32:
		return keyB64, nil
	case 0:
		return nil, fmt.Errorf("empty AES key material")
	default:
		return pbkdf2.Key(keyB64, ivRaw, pbkdf2Iterations, 32, sha256.New), nil
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding byte")
		}
	}
	return data[:len(data)-padding], nil
}

func cbcMaterial(keyB64, ivB64 string) ([]byte, []byte, error) {
	keyRaw, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("decode AES key: %w", err)
	}
	ivRaw, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, nil, fmt.Errorf("decode AES IV: %w", err)
	}
	if len(ivRaw) != aes.BlockSize {
		return nil, nil, fmt.Errorf("AES IV must be %d bytes, got %d", aes.BlockSize, len(ivRaw))
	}
	key, err := aesKey(keyRaw, ivRaw)
	if err != nil {
		return nil, nil, err
	}
	return key, ivRaw, nil
}

// EncryptAESCBC encrypts plaintext with AES-CBC and PKCS#7 padding, returning
// base64 ciphertext.
func (StdCrypto) EncryptAESCBC(plaintext, keyB64, ivB64 string) (string, error) {
	key, iv, err := cbcMaterial(keyB64, ivB64)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create AES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptAESCBC reverses EncryptAESCBC. It fails rather than returning
// garbage when the ciphertext or padding is malformed.
func (StdCrypto) DecryptAESCBC(ciphertextB64, keyB64, ivB64 string) (string, error) {
	key, iv, err := cbcMaterial(keyB64, ivB64)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext is not a whole number of blocks")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create AES cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}
