// Package session provides Session, an encrypted message channel over one
// TCP connection.
//
// # Lifecycle
//
//	Disconnected → Connecting → KeyExchange → Established → Closing → Closed
//	                   │             │             │
//	                   └─────────────┴─────────────┴──→ Faulted
//
// Connect, Accept and Attach each take a fresh Session through the
// handshake. Any I/O error, framing violation or failed decryption moves
// the session to Faulted; from then on Send and Receive return
// errors.ErrFaulted. A payload over the limit is rejected by Send without
// touching the session.
//
// # Concurrency
//
// Send and Receive may run concurrently with each other. Concurrent calls to
// Send are serialised, as are concurrent calls to Receive. Close may be
// called from any goroutine at any time; it unblocks outstanding calls,
// which then return errors.ErrClosed.
//
// # Keys
//
// Without Config.KeyPair each session generates its own key pair and wipes
// the private half as soon as the handshake ends. A KeyPair supplied in
// Config is borrowed: the session never wipes it and the caller must keep
// it alive for the duration of the handshake. Directional session keys are
// wiped on Close or when the session faults.
package session
