package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/valve-bridge/internal/protocol"
	"github.com/nerrad567/valve-bridge/internal/transport"
	"github.com/nerrad567/valve-bridge/internal/valve"
)

// Notifications sent to the client.
const (
	NotifyHello = "hello"
	NotifyBye   = "bye"
	NotifyBeep  = "beep"
)

// Logger defines the logging interface used by the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ValveAllocator creates valves on request from the device.
// *valve.Registry satisfies it.
type ValveAllocator interface {
	Count() int
	Create(ctx context.Context) valve.Valve
}

// Options configures a Bridge.
type Options struct {
	// Valves allocates ids for REQUEST_ID commands. Required.
	Valves ValveAllocator

	// Logger is optional.
	Logger Logger

	// ForwardRawText sends device text lines to the client verbatim
	// instead of the fixed "beep" notification.
	ForwardRawText bool

	// Observers are notified of bridge activity.
	Observers []Observer
}

// slot holds the active connection of one role.
type slot struct {
	conn  transport.Conn
	since time.Time
}

func (s *slot) present() bool { return s.conn != nil }

// holds reports whether c is the connection in the slot.
func (s *slot) holds(c transport.Conn) bool {
	return s.conn != nil && c != nil && s.conn.ID() == c.ID()
}

// Bridge wires the device and client connections to the valve registry.
type Bridge struct {
	valves     ValveAllocator
	logger     Logger
	forwardRaw bool
	observers  []Observer

	// mu guards the slots for Status; only the Run loop writes them.
	mu     sync.RWMutex
	device slot
	client slot
}

// New creates a bridge.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		valves:     opts.Valves,
		logger:     logger,
		forwardRaw: opts.ForwardRawText,
		observers:  opts.Observers,
	}
}

// Run consumes both event streams until ctx is cancelled or both channels
// are closed. Events of each connection are handled in arrival order.
func (b *Bridge) Run(ctx context.Context, deviceEvents, clientEvents <-chan transport.Event) {
	b.logger.Info("bridge started", "forward_raw_text", b.forwardRaw)
	defer b.logger.Info("bridge stopped")

	for deviceEvents != nil || clientEvents != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-deviceEvents:
			if !ok {
				deviceEvents = nil
				continue
			}
			b.handleDeviceEvent(ctx, ev)
		case ev, ok := <-clientEvents:
			if !ok {
				clientEvents = nil
				continue
			}
			b.handleClientEvent(ev)
		}
	}
}

func (b *Bridge) handleDeviceEvent(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpened:
		b.occupy(&b.device, ev.Conn)
		if b.client.present() {
			b.notify(NotifyHello)
		}

	case transport.EventMessage:
		if !b.device.holds(ev.Conn) {
			b.logger.Debug("ignoring message from replaced device", "conn_id", ev.Conn.ID())
			return
		}
		b.observe(func(o Observer) { o.MessageReceived(transport.RoleDevice, ev.Message.Kind) })

		if ev.Message.IsCommand(protocol.OpRequestID) {
			b.assignValve(ctx, ev.Conn)
			return
		}
		if !b.client.present() {
			return
		}
		if b.forwardRaw {
			b.notify(ev.Message.Text)
		} else {
			b.notify(NotifyBeep)
		}

	case transport.EventClosed:
		if !b.vacate(&b.device, ev.Conn) {
			return
		}
		if b.client.present() {
			b.notify(NotifyBye)
		}
	}
}

func (b *Bridge) handleClientEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpened:
		b.occupy(&b.client, ev.Conn)
		if b.device.present() {
			b.notify(NotifyHello)
		}

	case transport.EventMessage:
		if !b.client.holds(ev.Conn) {
			b.logger.Debug("ignoring message from replaced client", "conn_id", ev.Conn.ID())
			return
		}
		b.logger.Debug("client message", "conn_id", ev.Conn.ID(), "text", ev.Message.Text)
		b.observe(func(o Observer) { o.MessageReceived(transport.RoleClient, ev.Message.Kind) })

	case transport.EventClosed:
		b.vacate(&b.client, ev.Conn)
	}
}

// assignValve allocates the next valve and replies with its SET_ID frame.
// Once the id space is used up nothing is created, so a controller
// retrying REQUEST_ID cannot grow the registry.
func (b *Bridge) assignValve(ctx context.Context, device transport.Conn) {
	if n := b.valves.Count(); n >= protocol.MaxValveID {
		b.logger.Error("valve id space exhausted, ignoring REQUEST_ID",
			"count", n,
			"conn_id", device.ID(),
		)
		return
	}

	v := b.valves.Create(ctx)
	b.observe(func(o Observer) { o.ValveAssigned(v.ID) })

	frame, err := protocol.EncodeSetID(v.ID)
	if err != nil {
		b.logger.Error("cannot encode valve id for device", "valve_id", v.ID, "error", err)
		return
	}
	if err := device.Write(frame); err != nil {
		b.logger.Warn("sending valve id to device failed",
			"valve_id", v.ID,
			"conn_id", device.ID(),
			"error", err,
		)
		return
	}
	b.logger.Info("valve id assigned", "valve_id", v.ID, "conn_id", device.ID())
}

// occupy puts c in s, closing any connection it replaces.
func (b *Bridge) occupy(s *slot, c transport.Conn) {
	role := c.Role()

	b.mu.Lock()
	old := s.conn
	s.conn = c
	s.since = time.Now()
	b.mu.Unlock()

	if old != nil && old.ID() != c.ID() {
		b.logger.Info("replacing connection",
			"role", role.String(),
			"old_conn_id", old.ID(),
			"conn_id", c.ID(),
		)
		old.Close() //nolint:errcheck // Its Closed event is ignored as stale
		b.observe(func(o Observer) { o.ConnectionReplaced(role) })
	}

	b.logger.Info("connection active", "role", role.String(), "conn_id", c.ID(), "remote", c.RemoteAddr())
	b.observe(func(o Observer) { o.ConnectionOpened(role, c.RemoteAddr()) })
}

// vacate empties s if it still holds c. It reports whether it did.
func (b *Bridge) vacate(s *slot, c transport.Conn) bool {
	b.mu.Lock()
	if !s.holds(c) {
		b.mu.Unlock()
		b.logger.Debug("ignoring close of replaced connection", "role", c.Role().String(), "conn_id", c.ID())
		return false
	}
	s.conn = nil
	s.since = time.Time{}
	b.mu.Unlock()

	b.logger.Info("connection gone", "role", c.Role().String(), "conn_id", c.ID())
	b.observe(func(o Observer) { o.ConnectionClosed(c.Role(), c.RemoteAddr()) })
	return true
}

// notify sends text to the client. Failures are logged only.
func (b *Bridge) notify(text string) {
	c := b.client.conn
	if c == nil {
		return
	}
	if err := c.Write([]byte(text)); err != nil {
		b.logger.Warn("notifying client failed", "conn_id", c.ID(), "error", err)
		return
	}
	b.observe(func(o Observer) { o.NotificationSent(text) })
}

// observe calls fn for every observer, recovering panics.
func (b *Bridge) observe(fn func(Observer)) {
	for _, o := range b.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("observer panic recovered", "panic", r)
				}
			}()
			fn(o)
		}()
	}
}
