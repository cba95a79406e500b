// Package transport accepts the two kinds of peer the bridge talks to.
//
// [DeviceServer] listens for valve controllers on raw TCP and frames their
// byte stream with the protocol package. [ClientServer] listens for browser
// clients over WebSocket. Both turn every accepted connection into a [Conn]
// and report its lifecycle on a single event channel:
//
//	Opened -> Message* -> Closed
//
// Events of one connection are always delivered in that order by the
// connection's own read goroutine. Closed is sent only after the connection
// has been marked closed, so a consumer seeing Closed can rely on IsOpen
// returning false.
//
// Writes are queued on a bounded per-connection buffer and drained by a
// write pump; a slow peer never blocks the caller.
package transport
