// Package store provides file-based persistence for cryptosocket's local state.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe via internal locking and every write goes
// through a temp file and rename. Stored files live under the configured
// home directory.
//
// The package includes stores for:
//   - The identity key pair (IdentityFileStore): PKCS#1 PEM sealed with a
//     passphrase-derived key, plus a plaintext public key for fingerprints
//   - Known servers (PeerFileStore): address to fingerprint, trust on first use
package store
