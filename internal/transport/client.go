package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/valve-bridge/internal/protocol"
)

// Default settings for the client listener.
const (
	DefaultClientPath     = "/"
	DefaultMaxClientFrame = 64 * 1024
	DefaultPingInterval   = 30 * time.Second
	DefaultPongTimeout    = 10 * time.Second

	// closeGracePeriod bounds the close handshake write.
	closeGracePeriod = time.Second

	// readHeaderTimeout bounds the upgrade request headers.
	readHeaderTimeout = 10 * time.Second
)

// ClientServerConfig configures a ClientServer.
type ClientServerConfig struct {
	// Addr is the host:port to listen on.
	Addr string

	// Path is the URL path that accepts upgrades.
	Path string

	// MaxMessageSize is the read limit per frame.
	MaxMessageSize int64

	// PingInterval between server pings. Negative disables pings and
	// read deadlines.
	PingInterval time.Duration

	// PongTimeout is how long to wait for a pong after a ping.
	PongTimeout time.Duration

	// SendBufferSize is the outbound queue length per connection.
	SendBufferSize int

	// CheckOrigin validates the Origin header. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
}

// ClientServer accepts browser clients over WebSocket.
type ClientServer struct {
	lifecycle
	cfg      ClientServerConfig
	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener
}

// NewClientServer creates a client server. Call Start to begin listening.
func NewClientServer(cfg ClientServerConfig) *ClientServer {
	if cfg.Path == "" {
		cfg.Path = DefaultClientPath
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxClientFrame
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = DefaultPongTimeout
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &ClientServer{
		lifecycle: newLifecycle(),
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SetLogger sets the logger for the server.
func (s *ClientServer) SetLogger(logger Logger) {
	s.logger = logger
}

// Handler returns the upgrade handler, for mounting on another mux.
func (s *ClientServer) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

// Start binds the listener and serves upgrades in the background.
// Cancelling ctx closes the server.
func (s *ClientServer) Start(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = srv
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("client listener failed", "error", err)
		}
	}()
	s.watch(ctx, s.Close)

	s.logger.Info("client listener started", "address", ln.Addr().String(), "path", s.cfg.Path)
	return nil
}

// Events returns the lifecycle event channel. It is closed by Close.
func (s *ClientServer) Events() <-chan Event {
	return s.events
}

// Addr returns the bound address, or nil before Start.
func (s *ClientServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount returns the number of live client connections.
func (s *ClientServer) ConnCount() int {
	return s.conns.count()
}

// Close stops the listener, closes all connections and waits for their
// goroutines. It is safe to call more than once.
func (s *ClientServer) Close() error {
	return s.shutdown(func() error {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return nil
		}
		if err := srv.Close(); err != nil {
			return fmt.Errorf("closing client listener: %w", err)
		}
		return nil
	})
}

func (s *ClientServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done.Done():
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConn(RoleClient, r.RemoteAddr, s.cfg.SendBufferSize, func() error {
		//nolint:errcheck // Best-effort close handshake
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))
		return ws.Close()
	})
	if !s.admit(c, 2) {
		return
	}

	s.logger.Info("client connected", "conn_id", c.ID(), "remote", c.RemoteAddr())
	s.emit(Event{Kind: EventOpened, Conn: c})

	go s.writePump(c, ws)
	go s.readPump(c, ws)
}

// readPump reads text frames and reports them as events.
func (s *ClientServer) readPump(c *conn, ws *websocket.Conn) {
	defer s.wg.Done()

	ws.SetReadLimit(s.cfg.MaxMessageSize)
	pingsEnabled := s.cfg.PingInterval > 0
	wait := s.cfg.PingInterval + s.cfg.PongTimeout
	if pingsEnabled {
		//nolint:errcheck // Best-effort deadline on connection setup
		ws.SetReadDeadline(time.Now().Add(wait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wait))
		})
	}

	var readErr error
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		if pingsEnabled {
			// Any client traffic counts as liveness.
			//nolint:errcheck // Best-effort deadline reset
			ws.SetReadDeadline(time.Now().Add(wait))
		}
		if msgType != websocket.TextMessage {
			s.logger.Debug("ignoring non-text client frame", "conn_id", c.ID(), "type", msgType)
			continue
		}
		s.emit(Event{
			Kind:    EventMessage,
			Conn:    c,
			Message: protocol.Message{Kind: protocol.KindText, Text: string(data)},
		})
	}

	wasOpen := c.IsOpen()
	c.Close() //nolint:errcheck // Connection already failed or closed
	s.conns.remove(c)

	if wasOpen && websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		s.logger.Warn("client read error", "conn_id", c.ID(), "error", readErr)
	} else {
		s.logger.Info("client disconnected", "conn_id", c.ID(), "remote", c.RemoteAddr())
	}
	s.emit(Event{Kind: EventClosed, Conn: c})
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *ClientServer) writePump(c *conn, ws *websocket.Conn) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	fail := func(err error) {
		s.logger.Warn("client write failed", "conn_id", c.ID(), "error", err)
		c.Close() //nolint:errcheck // Unblocks the read pump
	}

	for {
		select {
		case <-c.done.Done():
			return
		case data := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			ws.SetWriteDeadline(time.Now().Add(s.cfg.PongTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				fail(err)
				return
			}
		case <-tick:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			ws.SetWriteDeadline(time.Now().Add(s.cfg.PongTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				fail(err)
				return
			}
		}
	}
}
