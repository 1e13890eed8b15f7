// ChaCha20-Poly1305 AEAD for the encrypted RTSP transport.
// The wire format uses the IETF variant: 12-byte nonce, 16-byte tag,
// 32-byte key, with the frame's 2-byte length header as associated data.

package crypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEAD constants for the encrypted frame format.
const (
	// KeySize is the ChaCha20-Poly1305 key size in bytes.
	KeySize = chacha20poly1305.KeySize

	// NonceSize is the IETF ChaCha20-Poly1305 nonce size in bytes.
	NonceSize = chacha20poly1305.NonceSize

	// TagSize is the Poly1305 authentication tag size in bytes.
	TagSize = chacha20poly1305.Overhead
)

// Errors
var (
	ErrInvalidKeySize   = errors.New("crypto: invalid key size, must be 32 bytes")
	ErrInvalidNonceSize = errors.New("crypto: invalid nonce size, must be 12 bytes")
	ErrAuthFailed       = errors.New("crypto: message authentication failed")
)

// Encrypt seals plaintext with the given key, nonce and associated data.
// The returned ciphertext is len(plaintext)+TagSize bytes, tag appended.
func Encrypt(key, nonce, plaintext, aad []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Decrypt opens ciphertext produced by Encrypt with the same key, nonce
// and associated data. Returns ErrAuthFailed if the tag does not verify
// or the associated data was tampered with.
func Decrypt(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < TagSize {
		return nil, ErrAuthFailed
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}
