package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// encryptionEnvVar names the environment variable carrying the at-rest key.
// Presence of the variable enables AES-256-GCM for pattern and session files.
const encryptionEnvVar = "PAGELENS_ENCRYPTION_KEY"

// envelopePrefix marks an encrypted file. The on-disk form is
// v1:<base64(nonce)>:<base64(ciphertext+tag)> so plaintext JSON (which starts
// with '[' or '{') can never be mistaken for an encrypted payload.
const envelopePrefix = "v1:"

// GetEncryptionEnvVar returns the name of the environment variable that
// enables at-rest encryption.
func GetEncryptionEnvVar() string {
	return encryptionEnvVar
}

// loadKeyFromEnv reads and decodes the configured key. Returns nil when the
// variable is unset; errors when set but not a valid 32-byte key.
func loadKeyFromEnv() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(encryptionEnvVar))
	if raw == "" {
		return nil, nil
	}
	return decodeKey(raw)
}

// decodeKey accepts a hex- or base64-encoded 256-bit key
func decodeKey(raw string) ([]byte, error) {
	if key, err := hex.DecodeString(raw); err == nil {
		if len(key) != 32 {
			return nil, errors.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "encryption key is neither hex nor base64")
	}
	if len(key) != 32 {
		return nil, errors.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// sealPayload wraps plaintext in the versioned AES-256-GCM envelope
func sealPayload(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	envelope := envelopePrefix +
		base64.StdEncoding.EncodeToString(nonce) + ":" +
		base64.StdEncoding.EncodeToString(ciphertext)
	return []byte(envelope), nil
}

// openPayload unwraps the versioned envelope and decrypts
func openPayload(envelope, key []byte) ([]byte, error) {
	parts := strings.SplitN(strings.TrimPrefix(string(envelope), envelopePrefix), ":", 2)
	if len(parts) != 2 {
		return nil, errors.New("malformed encrypted envelope")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.Wrap(err, "malformed nonce")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "malformed ciphertext")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt payload")
	}
	return plaintext, nil
}

// isEncrypted reports whether file content carries the encrypted envelope
func isEncrypted(content []byte) bool {
	return strings.HasPrefix(string(content), envelopePrefix)
}
