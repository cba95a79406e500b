// Package ui serves the browser interface of the valve bridge.
//
// A build of the UI can be served from a directory; without one, a small
// embedded page offering login and a live view of bridge notifications is
// served. Both modes fall back to index.html for unknown extensionless
// paths so client-side routes such as /login resolve.
package ui
