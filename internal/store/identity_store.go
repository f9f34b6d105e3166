package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cryptosocket/internal/crypto"
	"cryptosocket/internal/domain"
	cserrors "cryptosocket/internal/errors"
)

const (
	idFilename    = "identity.json.enc"
	idPubFilename = "identity.pub"
	idFileMode    = 0o600
	idPubFileMode = 0o644
)

// identityRecord is the plaintext sealed inside the envelope.
type identityRecord struct {
	CreatedAt time.Time `json:"created_at"`
	PEM       []byte    `json:"pem"`
}

// IdentityFileStore persists the local identity to disk.
type IdentityFileStore struct {
	dir    string
	params kdfParams
	mu     sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir, params: defaultKDFParams()}
}

// SaveIdentity writes the encrypted key pair and its public half.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	privPEM, err := crypto.MarshalPrivateKeyPEM(id.KeyPair)
	if err != nil {
		return err
	}
	defer crypto.Wipe(privPEM)
	pubPEM, err := crypto.MarshalPublicKeyPEM(&id.KeyPair.PublicKey)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(identityRecord{CreatedAt: id.CreatedAt.UTC(), PEM: privPEM})
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)

	blob, err := sealEnvelope(passphrase, raw, s.params)
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(s.dir, idFilename), blob, idFileMode); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, idPubFilename), pubPEM, idPubFileMode)
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := readFile(filepath.Join(s.dir, idFilename))
	if err != nil {
		return domain.Identity{}, err
	}
	if blob == nil {
		return domain.Identity{}, cserrors.ErrIdentityNotFound
	}
	raw, err := openEnvelope(passphrase, blob)
	if err != nil {
		return domain.Identity{}, err
	}
	defer crypto.Wipe(raw)

	var rec identityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	defer crypto.Wipe(rec.PEM)

	kp, err := crypto.ParsePrivateKeyPEM(rec.PEM)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{KeyPair: kp, CreatedAt: rec.CreatedAt}, nil
}

// LoadPublicKey reads the public half written next to the encrypted identity.
func (s *IdentityFileStore) LoadPublicKey() (*crypto.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, idPubFilename))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, cserrors.ErrIdentityNotFound
	}
	return crypto.ParsePublicKeyPEM(b)
}

// HasIdentity reports whether an encrypted identity exists.
func (s *IdentityFileStore) HasIdentity() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, idFilename))
	return b != nil, err
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
