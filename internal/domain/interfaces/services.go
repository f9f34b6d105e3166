package interfaces

import (
	"context"

	domaintypes "cryptosocket/internal/domain/types"
	"cryptosocket/internal/session"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(ctx context.Context, passphrase string, bits int, overwrite bool) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity() (domaintypes.Fingerprint, error)
}

// SessionService opens client sessions to servers.
type SessionService interface {
	Dial(ctx context.Context, addr domaintypes.Address, passphrase string) (*session.Session, error)
}

// DiscoveryService advertises and finds servers on the local network.
type DiscoveryService interface {
	Browse(ctx context.Context) ([]domaintypes.DiscoveredServer, error)
}
