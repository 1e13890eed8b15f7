// Package session holds the symmetric key material and nonce counters
// securing one connection's encrypted frames.
//
// A Session is established by an external pairing step, which derives one
// ChaCha20-Poly1305 key per direction and the initial counter values. The
// session is owned by that pairing subsystem; connections hold a
// non-owning reference for their lifetime.
package session

import (
	"github.com/openairplay/receiver/pkg/crypto"
)

// KeySize is the size of the per-direction ChaCha20-Poly1305 keys.
const KeySize = crypto.KeySize

// Session holds the encrypt/decrypt keys and independent frame counters
// for one secured connection.
//
// Seal and Open each consume exactly one counter value in their
// direction. The counters are internally synchronized, but callers must
// still enforce a single in-flight Seal and a single in-flight Open per
// session: two concurrent writers would interleave blocks on the wire in
// an order the peer's counter cannot follow.
type Session struct {
	encryptKey []byte
	decryptKey []byte

	encryptCounter *FrameCounter
	decryptCounter *FrameCounter
}

// Config is used to create a Session after pairing completes.
type Config struct {
	// EncryptKey is the 32-byte key for outgoing frames.
	EncryptKey []byte

	// DecryptKey is the 32-byte key for incoming frames.
	DecryptKey []byte

	// InitialEncryptCounter and InitialDecryptCounter are the starting
	// nonce counter values, defined by the pairing subsystem. Usually 0.
	InitialEncryptCounter uint64
	InitialDecryptCounter uint64
}

// New creates a session from derived key material. The keys are copied;
// the caller's slices are not retained.
func New(config Config) (*Session, error) {
	if len(config.EncryptKey) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(config.DecryptKey) != KeySize {
		return nil, ErrInvalidKey
	}

	s := &Session{
		encryptKey:     make([]byte, KeySize),
		decryptKey:     make([]byte, KeySize),
		encryptCounter: NewFrameCounter(config.InitialEncryptCounter),
		decryptCounter: NewFrameCounter(config.InitialDecryptCounter),
	}
	copy(s.encryptKey, config.EncryptKey)
	copy(s.decryptKey, config.DecryptKey)

	return s, nil
}

// Seal encrypts one block for transmission, consuming one encrypt
// counter value. The returned ciphertext is len(plaintext)+TagSize bytes
// with the authentication tag appended.
func (s *Session) Seal(aad, plaintext []byte) ([]byte, error) {
	counter, err := s.encryptCounter.Next()
	if err != nil {
		return nil, err
	}

	nonce := crypto.BuildFrameNonce(counter)
	ciphertext, err := crypto.Encrypt(s.encryptKey, nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) != len(plaintext)+crypto.TagSize {
		return nil, ErrCipherSizeMismatch
	}

	return ciphertext, nil
}

// Open decrypts one received block. The decrypt counter advances only on
// authentication success, so a corrupted frame does not desynchronize the
// nonce sequence (the connection is torn down by the caller instead).
func (s *Session) Open(aad, ciphertext []byte) ([]byte, error) {
	if s.decryptCounter.IsExhausted() {
		return nil, ErrCounterExhausted
	}

	nonce := crypto.BuildFrameNonce(s.decryptCounter.Current())
	plaintext, err := crypto.Decrypt(s.decryptKey, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if _, err := s.decryptCounter.Next(); err != nil {
		return nil, err
	}

	return plaintext, nil
}

// EncryptCounter returns the current outgoing frame counter value.
func (s *Session) EncryptCounter() uint64 {
	return s.encryptCounter.Current()
}

// DecryptCounter returns the current incoming frame counter value.
func (s *Session) DecryptCounter() uint64 {
	return s.decryptCounter.Current()
}

// Zeroize clears the session keys from memory. Call when tearing down
// the session; frames sealed or opened afterwards no longer match the
// peer's key material.
func (s *Session) Zeroize() {
	for i := range s.encryptKey {
		s.encryptKey[i] = 0
	}
	for i := range s.decryptKey {
		s.decryptKey[i] = 0
	}
}
