// Package commands defines the cryptosocket CLI and wires dependencies for subcommands.
//
// Commands
//
//   - keygen         Create or rotate the local identity key pair
//   - fingerprint    Print the identity fingerprint
//   - send           Open a session to a server and exchange messages
//   - peers          List or forget pinned server keys
//   - discover       Browse the local network for servers
//
// # Implementation
//
// The root command resolves the home directory, loads config.toml from it
// and builds the dependency graph (stores, services, discovery) before any
// subcommand runs. Flags given on the command line override the file.
package commands
