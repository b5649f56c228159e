// Package secretcrypto provides envelope encryption for secret values at
// rest, backing the "${secrets.*}" reference source.
package secretcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrInvalidKey        = errors.New("secretcrypto: invalid key")
	ErrInvalidCiphertext = errors.New("secretcrypto: invalid ciphertext")
	ErrDecryptionFailed  = errors.New("secretcrypto: decryption failed")
)

const kdfSalt = "nodeflow-secrets-v1"

// Box encrypts and decrypts secret values with AES-256-GCM, deriving its
// key from an arbitrary-length passphrase via PBKDF2.
type Box struct {
	gcm cipher.AEAD
}

// New derives a 32-byte AES key from passphrase via PBKDF2-SHA256 and
// builds a Box around it.
func New(passphrase []byte) (*Box, error) {
	if len(passphrase) < 8 {
		return nil, ErrInvalidKey
	}
	key := pbkdf2.Key(passphrase, []byte(kdfSalt), 10000, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{gcm: gcm}, nil
}

// NewFromString builds a Box from a base64- or hex-encoded passphrase.
func NewFromString(s string) (*Box, error) {
	if key, err := base64.StdEncoding.DecodeString(s); err == nil {
		return New(key)
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return New(key)
}

// Seal encrypts plaintext and returns base64-encoded ciphertext.
func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := b.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts base64-encoded ciphertext produced by Seal.
func (b *Box) Open(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	n := b.gcm.NonceSize()
	if len(data) < n {
		return "", ErrInvalidCiphertext
	}
	nonce, ct := data[:n], data[n:]
	pt, err := b.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(pt), nil
}
