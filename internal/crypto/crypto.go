// Package crypto implements authenticated encryption for file payloads.
//
// Every file is sealed with its own random 256-bit key under AES-256-GCM.
// Encrypted blobs use a fixed wire layout so they round-trip across
// independent implementations:
//
//	nonce[12] ‖ tag[16] ‖ ciphertext[variable]
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the length of a file encryption key in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
	// MinBlobSize is the smallest valid encrypted blob: a nonce and a tag
	// with an empty ciphertext.
	MinBlobSize = NonceSize + TagSize
)

var (
	// ErrInvalidKeyLength is returned when a key is not exactly KeySize bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrMalformedBlob is returned when a blob is too short to contain the
	// nonce and tag header. The file must be rejected as corrupt.
	ErrMalformedBlob = errors.New("encrypted blob too short")
	// ErrAuthentication is returned when tag verification fails: tampered
	// ciphertext, a wrong key, or a truncated blob.
	ErrAuthentication = errors.New("authentication failed")
	// ErrInvalidKeyEncoding is returned when a stored key string cannot be
	// decoded back into a KeySize-byte key.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
)

// GenerateKey returns a fresh random 256-bit key from crypto/rand.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with AES-256-GCM using a fresh random
// nonce, and returns the blob in the documented nonce‖tag‖ciphertext layout.
// Go's GCM appends the tag after the ciphertext, so the sealed output is
// re-ordered before return.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ct := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, NonceSize+TagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return blob, nil
}

// Decrypt splits blob into nonce, tag and ciphertext, verifies the tag and
// returns the plaintext. Blobs shorter than MinBlobSize fail with
// ErrMalformedBlob; any verification failure is ErrAuthentication.
func Decrypt(blob, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < MinBlobSize {
		return nil, ErrMalformedBlob
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize:MinBlobSize]
	ct := blob[MinBlobSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// EncodeKey serializes a key to standard base64 for storage alongside file
// metadata. The encoded form is never returned to file-consuming callers.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey decodes a stored key string. A string that does not decode to
// exactly KeySize bytes fails with ErrInvalidKeyEncoding rather than
// producing a corrupted key silently.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidKeyEncoding, len(key), KeySize)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
