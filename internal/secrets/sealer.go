// Package secrets seals provider API keys before they are stored.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "v1:"
	nonceSize    = 24
	keySize      = 32
	// MinSecretLength is the shortest accepted KEY_SECRET.
	MinSecretLength = 16
)

// Fixed salt: the derived key must be stable across restarts for the same secret.
var kdfSalt = []byte("moonscribe/api-keys/v1")

var (
	// ErrInvalidSecret is returned for a secret shorter than MinSecretLength.
	ErrInvalidSecret = errors.New("secret too short")
	// ErrInvalidCiphertext is returned when a sealed value is malformed or fails authentication.
	ErrInvalidCiphertext = errors.New("invalid sealed value")
)

// Sealer encrypts and authenticates short secrets with NaCl secretbox.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the sealing key from secret with Argon2id.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrInvalidSecret, MinSecretLength)
	}

	s := &Sealer{}
	derived := argon2.IDKey([]byte(secret), kdfSalt, 1, 64*1024, 4, keySize)
	copy(s.key[:], derived)
	return s, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown format", ErrInvalidCiphertext)
	}
	box, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plaintext, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("%w: authentication failed", ErrInvalidCiphertext)
	}
	return string(plaintext), nil
}

// Mask shows only the last four characters of a key.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return "..." + key[len(key)-4:]
}
