// Package app loads configuration and wires application dependencies for
// the cryptosocket binaries.
//
// Config is read from a TOML file under the home directory. NewWire builds
// the concrete stores and services from it and App exposes them to the
// CLI commands and the daemon.
package app
