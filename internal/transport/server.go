package transport

import (
	"context"
	"sync"
)

// eventBufferSize is the capacity of a server's event channel.
const eventBufferSize = 64

// lifecycle is the start/stop bookkeeping shared by both servers.
//
// Every connection goroutine is admitted under mu, so once shutdown has
// marked the server closed no new goroutine can join the wait group and
// every registered connection is in the snapshot closeAll takes.
type lifecycle struct {
	mu      sync.Mutex
	started bool
	closed  bool

	wg     sync.WaitGroup
	conns  *registry
	done   *closeOnce
	events chan Event
	logger Logger
}

func newLifecycle() lifecycle {
	return lifecycle{
		conns:  newRegistry(),
		done:   newCloseOnce(),
		events: make(chan Event, eventBufferSize),
		logger: noopLogger{},
	}
}

// begin marks the server started. It fails after Close or on a second call.
func (l *lifecycle) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrServerClosed
	}
	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true
	return nil
}

// watch closes the server when ctx is cancelled.
func (l *lifecycle) watch(ctx context.Context, closeFn func() error) {
	go func() {
		select {
		case <-ctx.Done():
			closeFn() //nolint:errcheck // Shutdown errors are logged by the server
		case <-l.done.Done():
		}
	}()
}

// admit registers c and reserves n goroutines for it. It returns false if
// the server is shutting down, in which case c is closed.
func (l *lifecycle) admit(c Conn, n int) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		c.Close() //nolint:errcheck // Rejected during shutdown
		return false
	}
	l.conns.add(c)
	l.wg.Add(n)
	l.mu.Unlock()
	return true
}

// emit delivers ev unless the server is shutting down.
func (l *lifecycle) emit(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done.Done():
	}
}

// shutdown stops the listener via stop, closes every connection, waits for
// all goroutines and closes the event channel. Only the first call acts.
func (l *lifecycle) shutdown(stop func() error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.done.Close()

	var err error
	if stop != nil {
		err = stop()
	}
	l.conns.closeAll()
	l.wg.Wait()
	close(l.events)
	return err
}
