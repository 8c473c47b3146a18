// Package cryptox holds the cryptographic primitives used by the secure
// credential store: PIN hashing, field encryption and store key handling.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PIN derivation parameters.
	PinSaltLength = 16
	PinIterations = 120_000
	PinKeyLength  = 32

	// StoreKeyLength is the AES-256 key size used for secure store values.
	StoreKeyLength = 32

	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
)

var (
	ErrInvalidSalt       = errors.New("invalid salt")
	ErrInvalidKey        = errors.New("invalid store key")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// GenerateSalt returns length bytes from crypto/rand.
func GenerateSalt(length int) ([]byte, error) {
	salt := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// HashPin derives the PIN verifier with PBKDF2-HMAC-SHA256.
func HashPin(pin string, salt []byte) ([]byte, error) {
	if len(salt) != PinSaltLength {
		return nil, ErrInvalidSalt
	}
	return pbkdf2.Key([]byte(pin), salt, PinIterations, PinKeyLength, sha256.New), nil
}

// VerifyPin recomputes the verifier for pin and compares it with expected in
// constant time. A malformed salt never verifies.
func VerifyPin(pin string, salt, expected []byte) bool {
	hash, err := HashPin(pin, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(hash, expected) == 1
}

// Seal encrypts plaintext with AES-GCM under key. The additional data binds
// the ciphertext to its storage slot, so a value copied to another key fails
// to open.
func Seal(key, plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// Open reverses Seal.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != StoreKeyLength {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DeriveStoreKey turns a configured device secret into a store key.
func DeriveStoreKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, StoreKeyLength)
}

// LoadOrCreateKey reads the store key from path, generating and persisting a
// fresh random key with 0600 permissions on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != StoreKeyLength {
			return nil, fmt.Errorf("%s: %w", path, ErrInvalidKey)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read store key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	key, err = GenerateSalt(StoreKeyLength)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write store key: %w", err)
	}
	return key, nil
}
