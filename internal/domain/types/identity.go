package types

import (
	"time"

	"cryptosocket/internal/crypto"
)

// Identity is the long-term RSA key pair of this installation.
//
// It is only used for sessions when key reuse is enabled; otherwise every
// session generates its own ephemeral pair.
type Identity struct {
	KeyPair   *crypto.KeyPair
	CreatedAt time.Time
}

// Fingerprint returns the fingerprint of the identity public key.
func (id Identity) Fingerprint() Fingerprint {
	if id.KeyPair == nil {
		return ""
	}
	return Fingerprint(crypto.Fingerprint(&id.KeyPair.PublicKey))
}
