package session

import "errors"

// Session package errors.
var (
	// ErrInvalidKey is returned when an encryption key has invalid length.
	ErrInvalidKey = errors.New("session: invalid key length")

	// ErrCounterExhausted is returned when a frame counter has wrapped.
	// The session must be re-established when this occurs.
	ErrCounterExhausted = errors.New("session: frame counter exhausted")

	// ErrCipherSizeMismatch is returned when the cipher produces output of
	// an unexpected size for a sealed block.
	ErrCipherSizeMismatch = errors.New("session: unexpected ciphertext length")

	// ErrDecryptionFailed is returned when block decryption fails.
	ErrDecryptionFailed = errors.New("session: decryption failed")
)
