package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes the wire encoding with SHA-256 and truncates to 10 bytes (20 hex
// chars). An invalid key has no fingerprint and yields "".
func Fingerprint(pub *PublicKey) string {
	b, err := MarshalPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:10])
}
