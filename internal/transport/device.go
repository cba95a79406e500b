package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/valve-bridge/internal/protocol"
)

// Default settings for the device listener.
const (
	// DefaultKeepAlive matches the probe interval the controllers were
	// originally deployed with.
	DefaultKeepAlive = time.Second

	// DefaultWriteTimeout bounds a single write to a controller.
	DefaultWriteTimeout = 5 * time.Second
)

// DeviceServerConfig configures a DeviceServer.
type DeviceServerConfig struct {
	// Addr is the host:port to listen on.
	Addr string

	// KeepAlive is the TCP keep-alive probe period. Zero selects
	// DefaultKeepAlive; negative disables probing.
	KeepAlive time.Duration

	// WriteTimeout bounds each write. Zero selects DefaultWriteTimeout.
	WriteTimeout time.Duration

	// MaxMessageSize bounds a single framed line.
	MaxMessageSize int

	// SendBufferSize is the outbound queue length per connection.
	SendBufferSize int
}

// DeviceServer accepts valve controllers over TCP.
type DeviceServer struct {
	lifecycle
	cfg DeviceServerConfig
	ln  net.Listener
}

// NewDeviceServer creates a device server. Call Start to begin listening.
func NewDeviceServer(cfg DeviceServerConfig) *DeviceServer {
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &DeviceServer{
		lifecycle: newLifecycle(),
		cfg:       cfg,
	}
}

// SetLogger sets the logger for the server.
func (s *DeviceServer) SetLogger(logger Logger) {
	s.logger = logger
}

// Start binds the listener and begins accepting in the background.
// Cancelling ctx closes the server.
func (s *DeviceServer) Start(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}

	lc := net.ListenConfig{KeepAlive: s.cfg.KeepAlive}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.wg.Add(1)
	s.mu.Unlock()

	go s.acceptLoop(ln)
	s.watch(ctx, s.Close)

	s.logger.Info("device listener started", "address", ln.Addr().String())
	return nil
}

// Events returns the lifecycle event channel. It is closed by Close.
func (s *DeviceServer) Events() <-chan Event {
	return s.events
}

// Addr returns the bound address, or nil before Start.
func (s *DeviceServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount returns the number of live device connections.
func (s *DeviceServer) ConnCount() int {
	return s.conns.count()
}

// Close stops accepting, closes all connections and waits for their
// goroutines. It is safe to call more than once.
func (s *DeviceServer) Close() error {
	return s.shutdown(func() error {
		s.mu.Lock()
		ln := s.ln
		s.mu.Unlock()
		if ln == nil {
			return nil
		}
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("closing device listener: %w", err)
		}
		return nil
	})
}

func (s *DeviceServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("device accept failed", "error", err)
			continue
		}

		s.configureKeepAlive(nc)
		c := newConn(RoleDevice, nc.RemoteAddr().String(), s.cfg.SendBufferSize, nc.Close)
		if !s.admit(c, 2) {
			return
		}
		go s.writePump(c, nc)
		go s.readLoop(c, nc)
	}
}

func (s *DeviceServer) configureKeepAlive(nc net.Conn) {
	tc, ok := nc.(*net.TCPConn)
	if !ok || s.cfg.KeepAlive < 0 {
		return
	}
	if err := tc.SetKeepAlive(true); err != nil {
		s.logger.Warn("enabling keep-alive failed", "remote", nc.RemoteAddr().String(), "error", err)
		return
	}
	if err := tc.SetKeepAlivePeriod(s.cfg.KeepAlive); err != nil {
		s.logger.Warn("setting keep-alive period failed", "remote", nc.RemoteAddr().String(), "error", err)
	}
}

// readLoop frames the stream and reports it as events. Opened goes out
// before the first read; Closed goes out after the connection is closed.
func (s *DeviceServer) readLoop(c *conn, nc net.Conn) {
	defer s.wg.Done()

	log := []any{"conn_id", c.ID(), "remote", c.RemoteAddr()}
	s.logger.Info("device connected", log...)
	s.emit(Event{Kind: EventOpened, Conn: c})

	scanner := protocol.NewScanner(nc, s.cfg.MaxMessageSize)
	for {
		msg, ok := scanner.Next()
		if !ok || msg.IsEndOfStream() {
			break
		}
		s.logger.Debug("device message", append(log, "kind", msg.Kind.String())...)
		s.emit(Event{Kind: EventMessage, Conn: c, Message: msg})
	}

	// A read error after we closed the socket ourselves is expected.
	readErr := scanner.Err()
	wasOpen := c.IsOpen()
	c.Close() //nolint:errcheck // Socket already failed or hit EOF
	s.conns.remove(c)

	switch {
	case readErr != nil && wasOpen:
		s.logger.Warn("device stream error", append(log, "error", readErr)...)
	default:
		s.logger.Info("device disconnected", log...)
	}
	s.emit(Event{Kind: EventClosed, Conn: c})
}

func (s *DeviceServer) writePump(c *conn, nc net.Conn) {
	defer s.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		case data := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if _, err := nc.Write(data); err != nil {
				s.logger.Warn("device write failed",
					"conn_id", c.ID(),
					"remote", c.RemoteAddr(),
					"error", err,
				)
				c.Close() //nolint:errcheck // Unblocks the read loop
				return
			}
		}
	}
}
