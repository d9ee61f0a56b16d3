// Package vault envelope-encrypts OAuth tokens at rest. A payload is a single
// base64 blob laid out as nonce(12B) || tag(16B) || ciphertext; only this
// package ever sees token plaintext outside the moment of a network call.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/socialpulse/syncd/internal/errs"
)

const (
	nonceLen = chacha20poly1305.NonceSize // 12
	tagLen   = chacha20poly1305.Overhead  // 16
	keyLen   = chacha20poly1305.KeySize   // 32
)

// hkdf info string binds derived keys to this use.
var keyInfo = []byte("syncd/token-vault/v1")

// Vault derives its AEAD key once from the configured secret.
type Vault struct {
	key []byte
}

// New derives the vault key from secret via HKDF-SHA256. The derivation is
// deterministic: the same secret always yields the same key.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault: empty secret: %w", errs.ErrConfig)
	}
	key := make([]byte, keyLen)
	if _, err := hkdf.New(sha256.New, []byte(secret), nil, keyInfo).Read(key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the base64
// payload. Two calls with the same plaintext produce different payloads.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal emits ciphertext||tag; the stored layout is nonce||tag||ciphertext.
	ct := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	out := make([]byte, 0, nonceLen+tagLen+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a payload produced by Encrypt. Any malformed, truncated or
// tampered payload fails with ErrIntegrity; partial plaintext is never
// returned.
func (v *Vault) Decrypt(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("vault: bad encoding: %w", errs.ErrIntegrity)
	}
	if len(raw) < nonceLen+tagLen {
		return "", fmt.Errorf("vault: payload too short: %w", errs.ErrIntegrity)
	}
	nonce := raw[:nonceLen]
	tag := raw[nonceLen : nonceLen+tagLen]
	ct := raw[nonceLen+tagLen:]

	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return "", err
	}
	sealed := make([]byte, 0, len(ct)+tagLen)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("vault: %w", errs.ErrIntegrity)
	}
	return string(plaintext), nil
}
