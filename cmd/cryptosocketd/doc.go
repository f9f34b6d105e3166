// Package main runs the cryptosocket daemon: an echo server that accepts
// encrypted sessions and returns every message it receives.
//
// Behaviour
//
//   - Configuration comes from <home>/config.toml. Flags override it.
//   - With keys.reuse set, the stored identity key pair serves every session
//     and its fingerprint is advertised. Otherwise each session gets a fresh
//     key pair.
//   - With server.advertise set, the daemon registers itself over mDNS.
//   - An access log records each session's remote address, peer fingerprint
//     and duration.
//   - SIGINT or SIGTERM closes the listener and every live session.
//
// The default listen address is :7700.
package main
