// Package rtsp implements the secure RTSP transport of the receiver: the
// encrypted frame codec, the request parser and response builder, and a
// lifecycle-scoped connection server.
//
// Method dispatch is external: the server assembles complete messages,
// parses them, and hands the resulting Request (with its Conn) to the
// configured handler. Session establishment is likewise external; the
// pairing layer attaches a session.Session to the Conn, after which the
// same read loop transparently switches to the encrypted codec.
package rtsp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/openairplay/receiver/pkg/metrics"
)

// Server defaults.
const (
	// DefaultPollInterval is the read deadline used to poll connections,
	// so partial-frame reads stay resumable while shutdown stays prompt.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultMaxRequestSize bounds one assembled request (headers + body).
	DefaultMaxRequestSize = 16 * 1024
)

// RequestHandler is called for each complete parsed request. The handler
// runs on the connection's serving goroutine and typically replies via
// conn.WriteResponse. The request's Body aliases a buffer reused after
// the handler returns; copy it to retain it.
type RequestHandler func(conn *Conn, req *Request)

// ServerConfig configures the RTSP server.
type ServerConfig struct {
	// Listener is an optional pre-existing listener. If nil, one is
	// created on ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g., ":5000").
	// Ignored if Listener is provided; empty means an ephemeral port.
	ListenAddr string

	// Handler is called for each parsed request. Required.
	Handler RequestHandler

	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration

	// MaxRequestSize overrides DefaultMaxRequestSize.
	MaxRequestSize int

	// Metrics enables transport instrumentation. Optional.
	Metrics *metrics.Metrics

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Server accepts RTSP connections and drives their read loops. It is an
// explicitly constructed, Start/Stop-scoped resource; multiple instances
// can coexist in one process.
type Server struct {
	listener net.Listener
	handler  RequestHandler
	closeCh  chan struct{}
	wg       sync.WaitGroup
	log      logging.LeveledLogger
	metrics  *metrics.Metrics

	pollInterval   time.Duration
	maxRequestSize int

	// Connection tracking
	connsMu sync.Mutex
	conns   map[*Conn]struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewServer creates a new server with the given configuration.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	s := &Server{
		listener:       config.Listener,
		handler:        config.Handler,
		closeCh:        make(chan struct{}),
		metrics:        config.Metrics,
		pollInterval:   config.PollInterval,
		maxRequestSize: config.MaxRequestSize,
		conns:          make(map[*Conn]struct{}),
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.maxRequestSize <= 0 {
		s.maxRequestSize = DefaultMaxRequestSize
	}

	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("rtsp-server")
	}

	if s.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}

		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		s.listener = listener
	}

	return s, nil
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("listening on %s", s.listener.Addr())
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and all connections, then waits for the
// serving goroutines to drain.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("stopping")
	}

	close(s.closeCh)
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// LocalAddr returns the address the server is listening on.
func (s *Server) LocalAddr() net.Addr {
	return s.listener.Addr()
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(nc)
	}
}

// handleConn owns one connection for its lifetime.
func (s *Server) handleConn(nc net.Conn) {
	defer s.wg.Done()

	conn := NewConn(nc)
	conn.SetMetrics(s.metrics)

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	if s.metrics != nil {
		s.metrics.ConnectionsAccepted.Inc()
		s.metrics.ConnectionsActive.Inc()
	}
	if s.log != nil {
		s.log.Debugf("connection from %s", nc.RemoteAddr())
	}

	defer func() {
		conn.Close()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		if s.metrics != nil {
			s.metrics.ConnectionsActive.Dec()
		}
	}()

	s.serveConn(conn)
}

// serveConn runs the read loop: poll the socket, assemble complete
// messages (plaintext bytes or decrypted blocks), parse, dispatch.
func (s *Server) serveConn(conn *Conn) {
	buf := make([]byte, MaxBlockSize)
	var pending []byte

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.pollInterval))

		var n int
		var err error
		if conn.Encrypted() {
			n, err = conn.ReadBlock(buf)
		} else {
			n, err = conn.ReadPlain(buf)
		}

		switch {
		case err == nil:
			pending = append(pending, buf[:n]...)
		case errors.Is(err, ErrWouldBlock):
			continue
		case errors.Is(err, ErrPeerClosed), errors.Is(err, ErrNotEncrypted):
			// Expected disconnect or session teardown race; not an anomaly.
			if s.log != nil {
				s.log.Debugf("%s: connection done: %v", conn.RemoteAddr(), err)
			}
			return
		default:
			// Protocol violation: byte alignment cannot be recovered
			// after a framing or authentication failure, so close.
			if s.log != nil {
				s.log.Warnf("%s: closing connection: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if len(pending) > s.maxRequestSize {
			if s.log != nil {
				s.log.Warnf("%s: %v", conn.RemoteAddr(), ErrRequestTooLarge)
			}
			return
		}

		pending = s.dispatchComplete(conn, pending)
		if pending == nil {
			return
		}
	}
}

// dispatchComplete parses and dispatches every complete message at the
// front of pending, returning the remaining bytes. A logical message may
// span several encrypted blocks; completeness is judged by the header
// terminator plus the declared Content-Length, cross-checked against the
// configured maximum before it is trusted. Returns nil when the
// connection must close.
func (s *Server) dispatchComplete(conn *Conn, pending []byte) []byte {
	for {
		headerEnd := HeaderEnd(pending)
		if headerEnd < 0 {
			return pending
		}

		req, err := ParseRequest(pending)
		if err != nil {
			if s.metrics != nil {
				s.metrics.ParseErrors.Inc()
			}
			if s.log != nil {
				s.log.Warnf("%s: %v", conn.RemoteAddr(), err)
			}
			return nil
		}

		total := headerEnd + len(crlfcrlf) + req.ContentLength
		if total > s.maxRequestSize {
			if s.log != nil {
				s.log.Warnf("%s: %v", conn.RemoteAddr(), ErrRequestTooLarge)
			}
			return nil
		}
		if len(pending) < total {
			// Body still in flight; more blocks or bytes needed.
			return pending
		}

		// Re-parse bounded to this message so the body view cannot bleed
		// into a pipelined follow-up request.
		req, err = ParseRequest(pending[:total])
		if err != nil {
			return nil
		}

		if s.metrics != nil {
			s.metrics.RequestsParsed.Inc()
		}
		if s.log != nil {
			s.log.Debugf("%s: %s %s (cseq %d)", conn.RemoteAddr(), req.Method, req.Path, req.CSeq)
		}

		s.handler(conn, req)

		pending = append(pending[:0], pending[total:]...)
		if len(pending) == 0 {
			return pending[:0]
		}
	}
}
