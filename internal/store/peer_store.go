package store

import (
	"path/filepath"
	"sort"
	"sync"

	"cryptosocket/internal/domain"
)

const (
	peersFilename = "known_peers.json"
	peersFileMode = 0o600
)

// PeerFileStore persists known servers as a JSON map keyed by address.
type PeerFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPeerFileStore returns a PeerFileStore rooted at dir.
func NewPeerFileStore(dir string) *PeerFileStore { return &PeerFileStore{dir: dir} }

func (s *PeerFileStore) path() string { return filepath.Join(s.dir, peersFilename) }

func (s *PeerFileStore) load() (map[domain.Address]domain.KnownPeer, error) {
	peers := make(map[domain.Address]domain.KnownPeer)
	if _, err := readJSON(s.path(), &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// LookupPeer returns the record for addr, if any.
func (s *PeerFileStore) LookupPeer(addr domain.Address) (domain.KnownPeer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return domain.KnownPeer{}, false, err
	}
	p, ok := peers[addr]
	return p, ok, nil
}

// SavePeer inserts or replaces the record for peer.Address.
func (s *PeerFileStore) SavePeer(peer domain.KnownPeer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return err
	}
	peers[peer.Address] = peer
	return writeJSON(s.path(), peers, peersFileMode)
}

// ListPeers returns every known peer sorted by address.
func (s *PeerFileStore) ListPeers() ([]domain.KnownPeer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.KnownPeer, 0, len(peers))
	for _, p := range peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// ForgetPeer removes addr. Forgetting an unknown address is not an error.
func (s *PeerFileStore) ForgetPeer(addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := peers[addr]; !ok {
		return nil
	}
	delete(peers, addr)
	return writeJSON(s.path(), peers, peersFileMode)
}

// Compile-time assertion that PeerFileStore implements domain.PeerStore.
var _ domain.PeerStore = (*PeerFileStore)(nil)
