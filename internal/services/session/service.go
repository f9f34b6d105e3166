package session

import (
	"context"
	"fmt"
	"time"

	"cryptosocket/internal/crypto"
	"cryptosocket/internal/domain"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/session"
)

// Options controls how Dial sets up sessions.
type Options struct {
	// Session is the template for every dialled session.
	Session session.Config
	// ReuseIdentity uses the stored identity key pair instead of a fresh one.
	ReuseIdentity bool
	// PinPeers enables trust-on-first-use checking of server keys.
	PinPeers bool
}

// Service dials servers and applies key reuse and pinning policy.
type Service struct {
	idStore   domain.IdentityStore
	peerStore domain.PeerStore
	opts      Options
	now       func() time.Time
}

// New constructs a session Service.
func New(idStore domain.IdentityStore, peerStore domain.PeerStore, opts Options) *Service {
	return &Service{idStore: idStore, peerStore: peerStore, opts: opts, now: time.Now}
}

// Dial connects to addr and returns an established session.
//
// Steps:
//  1. Load the identity key pair if reuse is enabled.
//  2. Connect and run the handshake.
//  3. Check the server key against the known-peers store if pinning is enabled.
func (s *Service) Dial(ctx context.Context, addr domain.Address, passphrase string) (*session.Session, error) {
	cfg := s.opts.Session
	if s.opts.ReuseIdentity {
		id, err := s.idStore.LoadIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("load identity: %w", err)
		}
		// The session only borrows the pair for the handshake.
		defer id.KeyPair.Wipe()
		cfg.KeyPair = id.KeyPair
	}

	sess := session.New(cfg)
	if err := sess.Connect(ctx, addr.String()); err != nil {
		_ = sess.Close()
		return nil, err
	}

	if s.opts.PinPeers {
		if err := s.checkPeer(addr, sess.PeerPublicKey()); err != nil {
			_ = sess.Close()
			return nil, err
		}
	}
	return sess, nil
}

// checkPeer trusts the first key seen for addr and rejects any other.
func (s *Service) checkPeer(addr domain.Address, pub *crypto.PublicKey) error {
	fp := domain.Fingerprint(crypto.Fingerprint(pub))
	now := s.now().UTC()

	known, ok, err := s.peerStore.LookupPeer(addr)
	if err != nil {
		return err
	}
	if ok && known.Fingerprint != fp {
		return fmt.Errorf("%w: %s was %s, now %s", cserrors.ErrPeerKeyChanged, addr, known.Fingerprint, fp)
	}
	if !ok {
		known = domain.KnownPeer{Address: addr, Fingerprint: fp, FirstSeen: now}
	}
	known.LastSeen = now
	return s.peerStore.SavePeer(known)
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
