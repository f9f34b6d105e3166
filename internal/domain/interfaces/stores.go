package interfaces

import (
	"cryptosocket/internal/crypto"
	domaintypes "cryptosocket/internal/domain/types"
)

// IdentityStore persists your long-term identity key pair.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	// LoadPublicKey reads the public half without the passphrase.
	LoadPublicKey() (*crypto.PublicKey, error)
	HasIdentity() (bool, error)
}

// PeerStore remembers the servers we have connected to.
type PeerStore interface {
	LookupPeer(addr domaintypes.Address) (domaintypes.KnownPeer, bool, error)
	SavePeer(peer domaintypes.KnownPeer) error
	ListPeers() ([]domaintypes.KnownPeer, error)
	ForgetPeer(addr domaintypes.Address) error
}
