// Package logging provides leveled console logging for the cryptosocket
// commands and daemon.
//
// # Verbosity Levels
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages
//
// Warnings and errors are always written to the error stream.
//
// # Usage
//
//	log := logging.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("listening on %s", addr)
//
// Logger satisfies the Logger interfaces of the session and server packages.
package logging
