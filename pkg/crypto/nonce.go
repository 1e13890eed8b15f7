// Nonce construction for the encrypted frame format.

package crypto

import (
	"encoding/binary"
)

// FrameNonceCounterOffset is the byte offset of the counter within a
// frame nonce. The first four bytes are always zero.
const FrameNonceCounterOffset = 4

// BuildFrameNonce constructs a 12-byte nonce for frame encryption and
// decryption.
//
// Format: 4 zero bytes || FrameCounter (8 bytes LE)
//
// Each direction of a session maintains its own counter; the counter
// increments by exactly one per frame so a (key, nonce) pair is never
// reused while the session is active.
func BuildFrameNonce(counter uint64) []byte {
	nonce := make([]byte, NonceSize)

	// Bytes 0-3: zero padding
	// Bytes 4-11: frame counter (little-endian)
	binary.LittleEndian.PutUint64(nonce[FrameNonceCounterOffset:], counter)

	return nonce
}
