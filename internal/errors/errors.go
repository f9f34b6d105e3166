package errors

import "errors"

// Key errors indicate a problem with key material.
var (
	// ErrKeyGeneration indicates no valid key pair was produced within the retry budget
	// or the requested size is unsupported.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrInvalidKey indicates malformed key material.
	ErrInvalidKey = errors.New("invalid key")

	// ErrValueOutOfRange indicates an integer outside [0, N) was given to a raw RSA operation.
	ErrValueOutOfRange = errors.New("value out of range for modulus")
)

// Cipher errors indicate a failure while sealing or opening a payload.
var (
	// ErrPayloadTooLarge indicates the plaintext exceeds the configured maximum.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrPaddingValidation indicates a ciphertext did not authenticate. It is returned for
	// wrong keys and corrupted data alike.
	ErrPaddingValidation = errors.New("message authentication failed")

	// ErrKeyMismatch is the same value as ErrPaddingValidation.
	ErrKeyMismatch = ErrPaddingValidation
)

// Transport errors indicate a failure on the wire.
var (
	// ErrFrame indicates a truncated or oversized length-prefixed frame.
	ErrFrame = errors.New("malformed frame")

	// ErrIO indicates the underlying socket failed.
	ErrIO = errors.New("socket i/o error")

	// ErrTimeout indicates a read or write deadline passed outside the handshake.
	ErrTimeout = errors.New("i/o timeout")
)

// Session errors indicate a failure in the session lifecycle.
var (
	// ErrHandshakeTimeout indicates the key exchange did not finish in time.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrKeyExchange indicates the peer sent malformed key material or the
	// session key could not be unwrapped.
	ErrKeyExchange = errors.New("key exchange failed")

	// ErrClosed indicates the session was closed locally or by the peer.
	ErrClosed = errors.New("session closed")

	// ErrFaulted indicates an earlier failure left the session unusable.
	ErrFaulted = errors.New("session faulted")

	// ErrSequence indicates a replayed, reordered or reflected frame.
	ErrSequence = errors.New("unexpected frame sequence")

	// ErrCancelled indicates the caller's context ended the operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotEstablished indicates Send or Receive was called before the handshake finished.
	ErrNotEstablished = errors.New("session not established")
)

// Local state errors indicate a problem with stored identity, peers or configuration.
var (
	// ErrIdentityNotFound indicates no identity has been generated in the home directory.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityExists indicates an identity already exists and would be overwritten.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrWrongPassphrase indicates the passphrase is incorrect or the identity file is corrupt.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

	// ErrWeakPassphrase indicates the passphrase fails the strength policy.
	ErrWeakPassphrase = errors.New("passphrase is too weak")

	// ErrPeerKeyChanged indicates a known peer presented a different public key.
	ErrPeerKeyChanged = errors.New("peer public key changed")

	// ErrInvalidConfig indicates the configuration file is malformed or out of range.
	ErrInvalidConfig = errors.New("configuration is invalid")
)
