package domain

import (
	interfaces "cryptosocket/internal/domain/interfaces"
	types "cryptosocket/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Fingerprint      = types.Fingerprint
	Address          = types.Address
	Identity         = types.Identity
	KnownPeer        = types.KnownPeer
	DiscoveredServer = types.DiscoveredServer
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService  = interfaces.IdentityService
	SessionService   = interfaces.SessionService
	DiscoveryService = interfaces.DiscoveryService
	IdentityStore    = interfaces.IdentityStore
	PeerStore        = interfaces.PeerStore
)
