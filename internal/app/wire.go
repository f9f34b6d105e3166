package app

import (
	"cryptosocket/internal/crypto"
	"cryptosocket/internal/discovery"
	"cryptosocket/internal/domain"
	"cryptosocket/internal/logging"
	"cryptosocket/internal/server"
	identitysvc "cryptosocket/internal/services/identity"
	sessionsvc "cryptosocket/internal/services/session"
	"cryptosocket/internal/store"
)

// Wire bundles all stores and services.
type Wire struct {
	Identity  domain.IdentityStore
	Peers     domain.PeerStore
	IDs       domain.IdentityService
	Sessions  domain.SessionService
	Discovery domain.DiscoveryService
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log logging.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	peerStore := store.NewPeerFileStore(cfg.Home)

	// High-level services
	idSvc := identitysvc.New(identityStore)
	sessSvc := sessionsvc.New(identityStore, peerStore, sessionsvc.Options{
		Session:       cfg.SessionOptions(log),
		ReuseIdentity: cfg.Keys.Reuse,
		PinPeers:      cfg.Keys.Pin,
	})

	return &Wire{
		Identity:  identityStore,
		Peers:     peerStore,
		IDs:       idSvc,
		Sessions:  sessSvc,
		Discovery: discovery.NewBrowser(discovery.DefaultBrowseTimeout),
	}, nil
}

// NewServer builds the daemon server. kp, if set, is lent read-only to every
// session, concurrently; the caller keeps ownership and wipes it after Serve
// returns. Session keys are still fresh per connection.
func NewServer(cfg Config, log logging.Logger, kp *crypto.KeyPair, h server.Handler) *server.Server {
	opts := cfg.SessionOptions(log)
	opts.KeyPair = kp
	return server.New(server.Config{
		Session:     opts,
		MaxSessions: cfg.Server.MaxSessions,
		Logger:      log,
	}, h)
}
