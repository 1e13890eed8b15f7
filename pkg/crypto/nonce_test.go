package crypto

import (
	"bytes"
	"testing"
)

func TestBuildFrameNonce(t *testing.T) {
	tests := []struct {
		name    string
		counter uint64
		want    []byte
	}{
		{
			name:    "Zero counter",
			counter: 0,
			want:    []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:    "Small counter little-endian",
			counter: 1,
			want:    []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:    "Multi-byte counter",
			counter: 0x0102030405060708,
			want:    []byte{0, 0, 0, 0, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01},
		},
		{
			name:    "Max counter",
			counter: 0xFFFFFFFFFFFFFFFF,
			want:    []byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nonce := BuildFrameNonce(tc.counter)
			if len(nonce) != NonceSize {
				t.Fatalf("nonce length = %d, want %d", len(nonce), NonceSize)
			}
			if !bytes.Equal(nonce, tc.want) {
				t.Errorf("nonce = %x, want %x", nonce, tc.want)
			}
		})
	}
}

func TestFrameNoncesDistinct(t *testing.T) {
	seen := make(map[string]uint64)
	for counter := uint64(0); counter < 1000; counter++ {
		nonce := string(BuildFrameNonce(counter))
		if prev, ok := seen[nonce]; ok {
			t.Fatalf("nonce collision between counters %d and %d", prev, counter)
		}
		seen[nonce] = counter
	}
}
