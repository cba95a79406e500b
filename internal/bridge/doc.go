// Package bridge relays between the valve controller and the browser client.
//
// A single [Bridge.Run] loop consumes the event channels of both transport
// servers and owns one slot per role. A newer connection replaces (and
// closes) the one in its slot; events from a replaced connection are
// ignored by comparing connection ids.
//
// Behaviour:
//
//	device opened            -> "hello" to client (if present)
//	client opened            -> "hello" to client (if device present)
//	device closed            -> "bye" to client (if present)
//	device REQUEST_ID        -> allocate valve, SET_ID frame back to device
//	device text              -> "beep" (or the raw text) to client
//	client text              -> observed only
package bridge
