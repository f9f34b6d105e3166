// Package errors provides the sentinel error values shared by every layer of
// cryptosocket.
//
// Callers match conditions with errors.Is rather than string comparison.
// Packages wrap sentinels with context using fmt.Errorf and %w.
//
// # Error Categories
//
//   - Key errors: generation and validation of RSA and session keys
//     (ErrKeyGeneration, ErrInvalidKey, ErrValueOutOfRange)
//   - Cipher errors: encryption and decryption of payloads
//     (ErrPayloadTooLarge, ErrPaddingValidation, ErrKeyMismatch)
//   - Transport errors: framing and socket failures (ErrFrame, ErrIO, ErrTimeout)
//   - Session errors: key exchange and lifecycle (ErrHandshakeTimeout,
//     ErrKeyExchange, ErrClosed, ErrFaulted, ErrSequence, ErrCancelled)
//   - Local state errors: identity, peers and configuration
//
// # Usage
//
// Handle errors in the CLI layer:
//
//	msg, err := sess.Receive()
//	if errors.Is(err, cserrors.ErrClosed) {
//	    // peer went away
//	}
//
// Decryption failures are deliberately uniform. A wrong key and a corrupted
// ciphertext both surface as ErrPaddingValidation and carry no further detail.
package errors
