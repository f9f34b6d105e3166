// Package handshake runs the cryptosocket key exchange over an established
// byte stream.
//
// The exchange is four frames:
//
//  1. client → server: client public key
//  2. server → client: server public key
//  3. client → server: fresh SessionKey sealed to the server key (RSA mode)
//  4. server → client: SHA-256 transcript of frames 1-3 sealed under the
//     server→client key (symmetric mode)
//
// Both sides expand the SessionKey with HKDF into one key per direction,
// salted with the transcript hash. Frame 4 proves to the client that the
// server unwrapped the key and saw the same transcript; a client that
// returns successfully therefore knows the server is ready.
//
// Run performs no deadline handling. The caller bounds it by setting a
// deadline on the underlying connection.
package handshake
