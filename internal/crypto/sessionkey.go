package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cserrors "cryptosocket/internal/errors"
)

// SessionKeySize is the length of a symmetric session key in bytes.
const SessionKeySize = 32

const (
	infoClientToServer = "cryptosocket|c2s"
	infoServerToClient = "cryptosocket|s2c"
)

// SessionKey is a symmetric key. It is never persisted.
type SessionKey [SessionKeySize]byte

// NewSessionKey draws a fresh key from crypto/rand.
func NewSessionKey() (*SessionKey, error) {
	var k SessionKey
	if _, err := rand.Read(k[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", cserrors.ErrKeyGeneration, err)
	}
	return &k, nil
}

// SessionKeyFromBytes copies b into a new key. b is not modified.
func SessionKeyFromBytes(b []byte) (*SessionKey, error) {
	if len(b) != SessionKeySize {
		return nil, fmt.Errorf("%w: session key must be %d bytes", cserrors.ErrInvalidKey, SessionKeySize)
	}
	var k SessionKey
	copy(k[:], b)
	if k.IsZero() {
		return nil, fmt.Errorf("%w: all-zero session key", cserrors.ErrInvalidKey)
	}
	return &k, nil
}

// Kind reports KindSession.
func (k *SessionKey) Kind() KeyKind { return KindSession }

// IsZero reports, in constant time, whether every byte is zero.
func (k *SessionKey) IsZero() bool {
	var zero SessionKey
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// Wipe zeroes the key in place.
func (k *SessionKey) Wipe() {
	if k != nil {
		Wipe(k[:])
	}
}

// DeriveDirectionalKeys expands master into one key per direction so that
// the two peers never seal under the same key. salt binds the keys to the
// handshake transcript.
func DeriveDirectionalKeys(master *SessionKey, salt []byte) (clientToServer, serverToClient *SessionKey, err error) {
	if master == nil || master.IsZero() {
		return nil, nil, fmt.Errorf("%w: empty master key", cserrors.ErrInvalidKey)
	}
	clientToServer, err = expand(master, salt, infoClientToServer)
	if err != nil {
		return nil, nil, err
	}
	serverToClient, err = expand(master, salt, infoServerToClient)
	if err != nil {
		clientToServer.Wipe()
		return nil, nil, err
	}
	return clientToServer, serverToClient, nil
}

func expand(master *SessionKey, salt []byte, info string) (*SessionKey, error) {
	r := hkdf.New(sha256.New, master[:], salt, []byte(info))
	var k SessionKey
	if _, err := io.ReadFull(r, k[:]); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return &k, nil
}
