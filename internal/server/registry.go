package server

import (
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptosocket/internal/crypto"
	"cryptosocket/internal/session"
)

// Entry describes one live connection.
type Entry struct {
	ID      uuid.UUID
	Remote  net.Addr
	Started time.Time
	Session *session.Session
}

// PeerFingerprint returns the peer key fingerprint, or "" before the handshake completes.
func (e Entry) PeerFingerprint() string {
	pub := e.Session.PeerPublicKey()
	if pub == nil {
		return ""
	}
	return crypto.Fingerprint(pub)
}

// Registry tracks live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]Entry)}
}

// Add registers s and returns its ID.
func (r *Registry) Add(s *session.Session, remote net.Addr) uuid.UUID {
	e := Entry{ID: uuid.New(), Remote: remote, Started: time.Now(), Session: s}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[e.ID] = e
	return e.ID
}

// Get retrieves an entry by ID.
func (r *Registry) Get(id uuid.UUID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Remove forgets id. It does not close the session.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// CloseAll closes every registered session.
func (r *Registry) CloseAll() {
	for _, e := range r.List() {
		_ = e.Session.Close()
	}
}
