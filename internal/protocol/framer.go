package protocol

import (
	"bufio"
	"bytes"
	"io"
)

const (
	// terminator separates text messages on the stream.
	terminator = '\n'

	// DefaultMaxMessageSize bounds a single buffered line.
	DefaultMaxMessageSize = bufio.MaxScanTokenSize

	// initialBufferSize is the scanner's starting buffer; it grows up to
	// the configured maximum.
	initialBufferSize = 512
)

// SplitMessages is a bufio.SplitFunc for controller streams.
//
// A REQUEST_ID byte at the start of the pending data is returned as a
// one-byte token. Otherwise data is split on '\n' (the terminator is not
// included). At EOF an unterminated remainder is returned as a final token.
// Tokens may be empty; callers skip them.
func SplitMessages(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if Opcode(data[0]) == OpRequestID {
		return 1, data[:1], nil
	}
	if i := bytes.IndexByte(data, terminator); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	// Request more data.
	return 0, nil, nil
}

// Scanner produces decoded messages from a raw controller stream.
//
// Fragmented reads are reassembled transparently, so the emitted sequence
// does not depend on how the transport chunks the bytes. After the
// underlying reader ends (EOF or error) Next returns EndOfStream exactly
// once and then reports false.
//
// A Scanner is not safe for concurrent use; each connection owns one.
type Scanner struct {
	scanner *bufio.Scanner
	ended   bool
	done    bool
}

// NewScanner wraps r. maxSize bounds a single line; values <= 0 select
// DefaultMaxMessageSize. A longer line terminates the stream with
// bufio.ErrTooLong.
func NewScanner(r io.Reader, maxSize int) *Scanner {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, min(initialBufferSize, maxSize)), maxSize)
	s.Split(SplitMessages)
	return &Scanner{scanner: s}
}

// Next returns the next message. The boolean is false once the terminal
// EndOfStream message has already been returned.
func (s *Scanner) Next() (Message, bool) {
	if s.done {
		return Message{}, false
	}
	if s.ended {
		s.done = true
		return Message{}, false
	}

	for s.scanner.Scan() {
		token := s.scanner.Bytes()
		if len(token) == 0 {
			continue
		}
		return Decode(token), true
	}

	s.ended = true
	return EndOfStream, true
}

// Err returns the transport error that ended the stream, or nil for a clean
// EOF or while the stream is still open.
func (s *Scanner) Err() error {
	return s.scanner.Err()
}
