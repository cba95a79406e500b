package transport

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/valve-bridge/internal/protocol"
)

// defaultSendBufferSize is the per-connection outbound queue length.
const defaultSendBufferSize = 64

// Role identifies which side of the bridge a connection belongs to.
type Role int

const (
	// RoleDevice is a valve controller on the TCP listener.
	RoleDevice Role = iota
	// RoleClient is a browser on the WebSocket listener.
	RoleClient
)

// String returns the role name used in logs and metrics labels.
func (r Role) String() string {
	switch r {
	case RoleDevice:
		return "device"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// Conn is one accepted peer connection.
type Conn interface {
	// ID is unique per accepted connection.
	ID() string
	Role() Role
	RemoteAddr() string
	// Write queues data for sending. It never blocks.
	Write(data []byte) error
	// Close terminates the connection. Safe to call more than once.
	Close() error
	IsOpen() bool
}

// EventKind is the type of a connection lifecycle event.
type EventKind int

const (
	// EventOpened is sent once, before any message of the connection.
	EventOpened EventKind = iota
	// EventMessage carries one decoded message.
	EventMessage
	// EventClosed is sent once, after the connection is marked closed.
	EventClosed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification for a connection.
type Event struct {
	Kind    EventKind
	Conn    Conn
	Message protocol.Message
}

// Logger defines the logging interface used by the servers.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// conn holds the state shared by TCP and WebSocket connections.
// The send channel is never closed; the write pump exits on done instead,
// so Write can race with Close without panicking.
type conn struct {
	id     string
	role   Role
	remote string

	send chan []byte
	done *closeOnce

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	closeFn   func() error
}

func newConn(role Role, remote string, bufferSize int, closeFn func() error) *conn {
	if bufferSize <= 0 {
		bufferSize = defaultSendBufferSize
	}
	return &conn{
		id:      uuid.NewString(),
		role:    role,
		remote:  remote,
		send:    make(chan []byte, bufferSize),
		done:    newCloseOnce(),
		closeFn: closeFn,
	}
}

func (c *conn) ID() string         { return c.id }
func (c *conn) Role() Role         { return c.role }
func (c *conn) RemoteAddr() string { return c.remote }
func (c *conn) IsOpen() bool       { return !c.closed.Load() }

func (c *conn) Write(data []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	// Copy so callers may reuse their buffer.
	msg := make([]byte, len(data))
	copy(msg, data)

	select {
	case <-c.done.Done():
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.done.Close()
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}

// registry tracks a server's live connections so Close can tear them down.
type registry struct {
	mu    sync.Mutex
	conns map[string]Conn
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]Conn)}
}

func (r *registry) add(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

func (r *registry) remove(c Conn) {
	r.mu.Lock()
	delete(r.conns, c.ID())
	r.mu.Unlock()
}

func (r *registry) closeAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close() //nolint:errcheck // Best effort during shutdown
	}
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
