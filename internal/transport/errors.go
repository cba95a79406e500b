package transport

import "errors"

// Domain errors for the transport package.
var (
	// ErrConnClosed is returned when writing to a closed connection.
	ErrConnClosed = errors.New("transport: connection closed")

	// ErrSendBufferFull is returned when a connection's outbound queue is full.
	ErrSendBufferFull = errors.New("transport: send buffer full")

	// ErrServerClosed is returned by Start after Close.
	ErrServerClosed = errors.New("transport: server closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("transport: server already started")
)
