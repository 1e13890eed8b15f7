package rtsp

import "errors"

// RTSP transport errors.
var (
	// ErrWouldBlock is returned by the read path when the socket has no
	// further bytes available before the read deadline. Not a failure:
	// accumulated partial-frame state is preserved for the next call.
	ErrWouldBlock = errors.New("rtsp: read would block")

	// ErrNotEncrypted is returned when the encrypted codec is invoked on a
	// connection without an attached session. This is a usage error, not a
	// protocol error: it is the expected outcome when a read loop races
	// session teardown, and callers must not log it as an anomaly.
	ErrNotEncrypted = errors.New("rtsp: connection not in encrypted mode")

	// ErrInvalidBlockLength is returned when a frame's length header is
	// zero, exceeds the maximum block size, or exceeds the caller's
	// buffer. Fatal: byte alignment cannot be recovered.
	ErrInvalidBlockLength = errors.New("rtsp: invalid encrypted block length")

	// ErrAuthenticationFailed is returned when a received frame fails AEAD
	// verification. Fatal: the connection must be closed.
	ErrAuthenticationFailed = errors.New("rtsp: frame authentication failed")

	// ErrPeerClosed is returned when the peer closes the connection,
	// including mid-frame. Reported distinctly so callers can treat it as
	// an expected disconnect rather than corruption.
	ErrPeerClosed = errors.New("rtsp: peer closed connection")

	// ErrSendFailed is returned when transmitting a frame or response
	// fails. Earlier blocks of the same message may already be on the
	// wire; the connection must be considered unreliable and closed.
	ErrSendFailed = errors.New("rtsp: send failed")

	// ErrIncompleteMessage is returned by the parser when the buffer holds
	// no CRLF-CRLF header terminator.
	ErrIncompleteMessage = errors.New("rtsp: incomplete message, no header terminator")

	// ErrMalformedRequest is returned when the request line yields no
	// method token.
	ErrMalformedRequest = errors.New("rtsp: malformed request line")

	// ErrRequestTooLarge is returned by the server read loop when an
	// assembled message would exceed the configured maximum.
	ErrRequestTooLarge = errors.New("rtsp: request exceeds maximum size")

	// Server lifecycle errors
	ErrClosed         = errors.New("rtsp: server closed")
	ErrAlreadyStarted = errors.New("rtsp: server already started")
	ErrNoHandler      = errors.New("rtsp: no request handler configured")
)
