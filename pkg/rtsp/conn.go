package rtsp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/openairplay/receiver/pkg/crypto"
	"github.com/openairplay/receiver/pkg/metrics"
	"github.com/openairplay/receiver/pkg/session"
)

// Encrypted frame wire format constants.
//
// Wire unit: uint16 length (LE) || ciphertext(length) || tag(16).
// The raw 2-byte length field is the AEAD associated data.
const (
	// MaxBlockSize is the maximum plaintext length carried by one
	// encrypted block. Larger messages are split across blocks on write
	// and reassembled by the reading caller.
	MaxBlockSize = 1024

	// lengthHeaderSize is the size of the little-endian length prefix.
	lengthHeaderSize = 2
)

// receiveState is the transient frame-assembly state of the read path.
// It is either fully empty or mid-frame; every exit path except
// would-block resets it before returning control to the caller.
type receiveState struct {
	lenBuf       [lengthHeaderSize]byte
	lenReceived  int
	blockLen     int    // validated plaintext length, 0 until known
	body         []byte // ciphertext+tag view into the conn scratch buffer
	bodyReceived int
}

func (r *receiveState) reset() {
	r.lenBuf[0] = 0
	r.lenBuf[1] = 0
	r.lenReceived = 0
	r.blockLen = 0
	r.body = nil
	r.bodyReceived = 0
}

// Conn is one accepted RTSP connection. It owns the frame codec state for
// that socket and holds a non-owning reference to the session securing it.
//
// A Conn is exclusively owned by the goroutine serving its socket; the
// read path keeps no internal locking. The write path may be driven from
// a second goroutine only if the caller enforces a single in-flight write.
type Conn struct {
	conn net.Conn

	sess      *session.Session
	encrypted bool

	rx receiveState

	// scratch is the connection-scoped ciphertext buffer, sized for the
	// largest possible block and reused across frames.
	scratch []byte

	// metrics is optional frame-level instrumentation. Nil disables it.
	metrics *metrics.Metrics
}

// NewConn wraps an accepted socket. The connection starts in plaintext
// mode; AttachSession switches it to the encrypted transport.
func NewConn(nc net.Conn) *Conn {
	return &Conn{conn: nc}
}

// AttachSession attaches pairing-derived session state and enables
// encrypted mode. All subsequent reads and writes use the frame codec.
// Call only between complete messages, never mid-frame.
func (c *Conn) AttachSession(s *session.Session) {
	c.sess = s
	c.encrypted = s != nil
}

// SetMetrics attaches optional frame-level instrumentation.
func (c *Conn) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Encrypted reports whether the connection is in encrypted mode.
func (c *Conn) Encrypted() bool {
	return c.encrypted
}

// Session returns the attached session, or nil.
func (c *Conn) Session() *session.Session {
	return c.sess
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetReadDeadline bounds the next read call. A deadline expiry surfaces
// as ErrWouldBlock with partial-frame state preserved, which is how the
// caller's poll loop drives the resumable read state machine.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the underlying socket. In-flight reads and writes fail
// fast afterwards.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// ReadBlock reads one encrypted frame, advancing as far as available
// bytes allow. It returns the plaintext length on a fully assembled and
// verified frame, or ErrWouldBlock when the socket has no more bytes yet
// (accumulated state is kept for the next call). Any other outcome is
// fatal to the frame and resets the receive state:
//
//   - ErrInvalidBlockLength: length header of 0, above MaxBlockSize, or
//     above len(buf)
//   - ErrAuthenticationFailed: AEAD verification failed
//   - ErrPeerClosed: the peer closed the connection
//   - ErrNotEncrypted: no session attached (usage error, expected during
//     teardown)
func (c *Conn) ReadBlock(buf []byte) (int, error) {
	if c.sess == nil || !c.encrypted {
		return 0, ErrNotEncrypted
	}

	// Accumulate the 2-byte length header.
	for c.rx.lenReceived < lengthHeaderSize {
		n, err := c.conn.Read(c.rx.lenBuf[c.rx.lenReceived:])
		c.rx.lenReceived += n
		if err != nil && c.rx.lenReceived < lengthHeaderSize {
			return 0, c.readError(err)
		}
	}

	// Validate the length and carve the ciphertext buffer once.
	if c.rx.body == nil {
		blockLen := int(binary.LittleEndian.Uint16(c.rx.lenBuf[:]))
		if blockLen == 0 || blockLen > MaxBlockSize || blockLen > len(buf) {
			c.rx.reset()
			return 0, ErrInvalidBlockLength
		}

		if c.scratch == nil {
			c.scratch = make([]byte, MaxBlockSize+crypto.TagSize)
		}
		c.rx.blockLen = blockLen
		c.rx.body = c.scratch[:blockLen+crypto.TagSize]
		c.rx.bodyReceived = 0
	}

	// Accumulate ciphertext + tag.
	for c.rx.bodyReceived < len(c.rx.body) {
		n, err := c.conn.Read(c.rx.body[c.rx.bodyReceived:])
		c.rx.bodyReceived += n
		if err != nil && c.rx.bodyReceived < len(c.rx.body) {
			return 0, c.readError(err)
		}
	}

	// Decrypt with the length header as associated data. The decrypt
	// counter advances only on success, inside Open.
	plaintext, err := c.sess.Open(c.rx.lenBuf[:], c.rx.body)
	if err != nil {
		c.rx.reset()
		if errors.Is(err, session.ErrCounterExhausted) {
			return 0, err
		}
		if c.metrics != nil {
			c.metrics.AuthFailures.Inc()
		}
		return 0, ErrAuthenticationFailed
	}

	n := copy(buf, plaintext)
	c.rx.reset()
	if c.metrics != nil {
		c.metrics.FramesDecrypted.Inc()
	}
	return n, nil
}

// readError maps an underlying socket error to the transport taxonomy.
// Deadline expiry preserves the receive state; everything else resets it.
func (c *Conn) readError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrWouldBlock
	}

	c.rx.reset()
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ErrPeerClosed
	}
	return err
}

// ReadPlain reads raw bytes in plaintext mode, with the same would-block
// and peer-close semantics as ReadBlock so a single read loop can serve
// both modes.
func (c *Conn) ReadPlain(buf []byte) (int, error) {
	n, err := c.conn.Read(buf)
	if err != nil && n == 0 {
		return 0, c.readError(err)
	}
	return n, nil
}

// WriteMessage encrypts and transmits a complete plaintext message,
// splitting it into blocks of at most MaxBlockSize. The encrypt counter
// advances by exactly one per block. A failure on any block aborts the
// whole write; blocks already sent are not retracted, so the caller must
// tear the connection down on error.
func (c *Conn) WriteMessage(payload []byte) error {
	if c.sess == nil || !c.encrypted {
		return ErrNotEncrypted
	}

	for offset := 0; offset < len(payload); {
		blockLen := len(payload) - offset
		if blockLen > MaxBlockSize {
			blockLen = MaxBlockSize
		}

		var lenBuf [lengthHeaderSize]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(blockLen))

		ciphertext, err := c.sess.Seal(lenBuf[:], payload[offset:offset+blockLen])
		if err != nil {
			return err
		}

		if err := c.sendAll(lenBuf[:]); err != nil {
			return err
		}
		if err := c.sendAll(ciphertext); err != nil {
			return err
		}

		offset += blockLen
		if c.metrics != nil {
			c.metrics.FramesSent.Inc()
		}
	}

	return nil
}

// WritePlain transmits raw bytes with a retrying send, for connections
// not yet in encrypted mode.
func (c *Conn) WritePlain(data []byte) error {
	return c.sendAll(data)
}

// sendAll writes the full buffer, retrying on partial writes until done
// or the socket reports a fatal error.
func (c *Conn) sendAll(data []byte) error {
	for sent := 0; sent < len(data); {
		n, err := c.conn.Write(data[sent:])
		sent += n
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		if n == 0 {
			return ErrSendFailed
		}
	}
	return nil
}
