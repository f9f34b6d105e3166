// Package seal turns plaintext into CipherBlocks and back.
//
// Two ciphers implement the Cipher capability:
//
//   - RSA: OAEP-SHA256 over the raw RSA primitives, one block per chunk of
//     at most k-66 bytes, each framed as [4-byte BE length][k bytes]. Used to
//     carry the session key during the handshake.
//   - Symmetric: XChaCha20-Poly1305 under a SessionKey with a random 24-byte
//     nonce. Used for every application payload.
//
// Encrypter and Decrypter pick the cipher from the key kind and block mode.
// Both are stateless after construction and safe for concurrent use.
//
// # Failure reporting
//
// Decrypt never distinguishes a wrong key from a corrupted block: both return
// errors.ErrPaddingValidation. In RSA mode every chunk is processed before
// the outcome is reported. Only a length prefix that disagrees with the bytes
// actually present is reported separately, as errors.ErrFrame.
package seal
