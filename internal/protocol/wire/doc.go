// Package wire reads and writes length-prefixed frames.
//
// Every message on a cryptosocket connection, handshake or application, is
// one frame:
//
//	[4-byte big-endian length][length bytes]
//
// ReadFrame distinguishes three endings. A clean EOF before any byte of a
// frame returns io.EOF. EOF inside the length prefix or the body returns
// errors.ErrFrame, as does a declared length above the caller's limit. Any
// other transport failure is wrapped in errors.ErrIO with the cause kept in
// the chain so timeouts can still be detected with errors.As.
package wire
