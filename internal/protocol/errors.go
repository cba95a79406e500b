package protocol

import "errors"

// Domain errors for the protocol package.
var (
	// ErrIDOutOfRange is returned when a valve id does not fit the 16-bit
	// SET_ID payload.
	ErrIDOutOfRange = errors.New("protocol: id out of range")

	// ErrEmptyFrame is returned when decoding a command from zero bytes.
	ErrEmptyFrame = errors.New("protocol: empty frame")

	// ErrShortFrame is returned when a command frame is missing payload bytes.
	ErrShortFrame = errors.New("protocol: short frame")
)
