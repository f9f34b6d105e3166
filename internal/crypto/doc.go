// Package crypto holds the key material and primitives behind cryptosocket.
//
// Contents
//
//   - RSA key pairs on math/big: generation with a bounded retry budget,
//     raw modular exponentiation (RawEncrypt) and blinded CRT decryption
//     (RawDecrypt)
//   - OAEP-SHA256 padding over the raw primitives (EncryptOAEP, DecryptOAEP)
//   - Symmetric session keys and their HKDF direction split (SessionKey,
//     DeriveDirectionalKeys)
//   - Public key encoding for the wire and PEM encoding for storage
//   - Short public-key fingerprints for display and pinning (Fingerprint)
//   - Best-effort wiping of byte slices and big integers (Wipe)
//
// # Notes
//
// A KeyPair is immutable once generated and may be shared read-only between
// goroutines. Wipe destroys its secret half in place; it must only be called
// by the owner once no operation is in flight.
//
// Decryption failures never say why. DecryptOAEP returns
// errors.ErrPaddingValidation for a wrong key, a flipped bit and an
// out-of-range ciphertext alike, and runs the same private operation for
// each of them.
package crypto
