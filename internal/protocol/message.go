package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Opcode identifies a command frame. The values are agreed with the
// controller firmware.
type Opcode byte

// Command opcodes.
const (
	// OpRequestID is sent by a controller that has no stored id.
	OpRequestID Opcode = 0x01

	// OpSetID is sent by the server with the assigned id as payload.
	OpSetID Opcode = 0x02
)

const (
	// setIDFrameSize is opcode(1) + id(2).
	setIDFrameSize = 3

	// MaxValveID is the largest id a SET_ID frame can carry.
	MaxValveID = math.MaxUint16
)

// String returns a readable opcode name for logs.
func (o Opcode) String() string {
	switch o {
	case OpRequestID:
		return "REQUEST_ID"
	case OpSetID:
		return "SET_ID"
	default:
		return fmt.Sprintf("opcode(0x%02x)", byte(o))
	}
}

// Kind classifies a Message.
type Kind int

// Message kinds.
const (
	KindText Kind = iota
	KindCommand
	KindEndOfStream
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCommand:
		return "command"
	case KindEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Command is a decoded binary frame.
type Command struct {
	Op      Opcode
	Payload []byte
}

// Encode serialises the command as opcode followed by payload.
func (c Command) Encode() []byte {
	frame := make([]byte, 0, 1+len(c.Payload))
	frame = append(frame, byte(c.Op))
	return append(frame, c.Payload...)
}

// Message is one logical unit read from a controller stream.
type Message struct {
	Kind    Kind
	Text    string
	Command Command
}

// EndOfStream is the terminal message emitted once per stream.
var EndOfStream = Message{Kind: KindEndOfStream}

// IsEndOfStream reports whether m is the terminal sentinel.
func (m Message) IsEndOfStream() bool {
	return m.Kind == KindEndOfStream
}

// IsCommand reports whether m carries the given opcode.
func (m Message) IsCommand(op Opcode) bool {
	return m.Kind == KindCommand && m.Command.Op == op
}

// Decode classifies a framed line. A line whose first byte is REQUEST_ID is
// a command with no payload; anything else is opaque text.
func Decode(line []byte) Message {
	if len(line) > 0 && Opcode(line[0]) == OpRequestID {
		return Message{Kind: KindCommand, Command: Command{Op: OpRequestID}}
	}
	return Message{Kind: KindText, Text: string(line)}
}

// EncodeSetID builds the 3-byte SET_ID frame for an assigned valve id.
func EncodeSetID(id int) ([]byte, error) {
	if id < 0 || id > MaxValveID {
		return nil, fmt.Errorf("%w: %d", ErrIDOutOfRange, id)
	}
	frame := make([]byte, setIDFrameSize)
	frame[0] = byte(OpSetID)
	binary.BigEndian.PutUint16(frame[1:], uint16(id))
	return frame, nil
}

// DecodeSetID extracts the id from a SET_ID frame. It is the inverse of
// EncodeSetID and is used by controller simulators and tests.
func DecodeSetID(frame []byte) (int, error) {
	if len(frame) == 0 {
		return 0, ErrEmptyFrame
	}
	if Opcode(frame[0]) != OpSetID {
		return 0, fmt.Errorf("protocol: unexpected %s", Opcode(frame[0]))
	}
	if len(frame) < setIDFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	return int(binary.BigEndian.Uint16(frame[1:setIDFrameSize])), nil
}
