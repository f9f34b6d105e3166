// Package server accepts TCP connections and runs one Session per
// connection.
//
// Each accepted connection is handshaken on its own goroutine, registered
// under a random ID in a Registry and handed to the Handler. When the
// context passed to Serve ends, the listener is closed, every live session
// is closed and Serve waits for all handlers to return.
package server
