// Package protocol implements the wire format spoken by valve controllers.
//
// A controller connected over TCP sends newline-terminated text lines and
// single-byte command frames on the same stream. This package splits the raw
// byte stream into logical messages and classifies each one.
//
// # Framing
//
// Bytes accumulate until a '\n' terminator. A REQUEST_ID byte found at a
// message boundary is a complete frame on its own: controller firmware sends
// it without a terminator and blocks until the server answers. Empty lines
// carry no message. When the stream ends, any trailing partial line is
// emitted, followed by exactly one end-of-stream message.
//
// # Command frames
//
//	REQUEST_ID (0x01)              controller asks for a valve id
//	SET_ID     (0x02) hi lo        server assigns id (big-endian uint16)
//
// Any other leading byte is opaque text and is passed through unmodified.
//
// # Usage
//
//	scanner := protocol.NewScanner(conn, protocol.DefaultMaxMessageSize)
//	for {
//	    msg, ok := scanner.Next()
//	    if !ok {
//	        break
//	    }
//	    if msg.IsEndOfStream() {
//	        // connection finished; scanner.Err() holds the cause, if any
//	    }
//	}
package protocol
