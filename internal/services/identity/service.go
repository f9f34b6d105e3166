package identity

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"cryptosocket/internal/crypto"
	"cryptosocket/internal/domain"
	cserrors "cryptosocket/internal/errors"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store domain.IdentityStore
	now   func() time.Time
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s, now: time.Now} }

// GenerateIdentity creates a new key pair, saves it encrypted with the
// passphrase, and returns it with its fingerprint. An existing identity is
// only replaced when overwrite is set.
func (s *Service) GenerateIdentity(
	ctx context.Context,
	passphrase string,
	bits int,
	overwrite bool,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", fmt.Errorf(
			"%w (must be at least %d characters and include upper, lower, number, and symbol)",
			cserrors.ErrWeakPassphrase, minPassphraseLength,
		)
	}
	if !overwrite {
		exists, err := s.store.HasIdentity()
		if err != nil {
			return domain.Identity{}, "", err
		}
		if exists {
			return domain.Identity{}, "", cserrors.ErrIdentityExists
		}
	}

	kp, err := crypto.GenerateKeyPair(ctx, bits)
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{KeyPair: kp, CreatedAt: s.now()}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		kp.Wipe()
		return domain.Identity{}, "", err
	}
	return id, id.Fingerprint(), nil
}

// LoadIdentity decrypts and returns the local identity. The caller owns the
// key pair and should Wipe it when done.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the stored public key.
// No passphrase is needed.
func (s *Service) FingerprintIdentity() (domain.Fingerprint, error) {
	pub, err := s.store.LoadPublicKey()
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint(pub)), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
