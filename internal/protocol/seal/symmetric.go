package seal

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
)

// TagSize is the length of the authentication tag in a symmetric block.
const TagSize = chacha20poly1305.Overhead

// SymmetricOverhead is the ciphertext expansion of one symmetric block.
const SymmetricOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

var symmetricAD = []byte{byte(ModeSymmetric)}

// Symmetric seals under a SessionKey with XChaCha20-Poly1305.
type Symmetric struct {
	// Random supplies nonces. Nil means crypto/rand.
	Random io.Reader
}

func (Symmetric) Mode() Mode { return ModeSymmetric }

func (c Symmetric) Encrypt(plaintext []byte, key crypto.Key) (CipherBlock, error) {
	sk, err := sessionKeyOf(key)
	if err != nil {
		return CipherBlock{}, err
	}
	aead, err := chacha20poly1305.NewX(sk[:])
	if err != nil {
		return CipherBlock{}, fmt.Errorf("%w: %w", cserrors.ErrInvalidKey, err)
	}

	random := c.Random
	if random == nil {
		random = rand.Reader
	}
	out := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+TagSize)
	if _, err := io.ReadFull(random, out); err != nil {
		return CipherBlock{}, fmt.Errorf("nonce: %w", err)
	}
	out = aead.Seal(out, out[:chacha20poly1305.NonceSizeX], plaintext, symmetricAD)

	split := len(out) - TagSize
	return CipherBlock{Mode: ModeSymmetric, Payload: out[:split], Tag: out[split:]}, nil
}

func (c Symmetric) Decrypt(block CipherBlock, key crypto.Key) ([]byte, error) {
	sk, ok := key.(*crypto.SessionKey)
	if !ok || sk == nil {
		return nil, cserrors.ErrKeyMismatch
	}
	if sk.IsZero() {
		return nil, fmt.Errorf("%w: session key wiped", cserrors.ErrInvalidKey)
	}
	if block.Mode != ModeSymmetric ||
		len(block.Payload) < chacha20poly1305.NonceSizeX || len(block.Tag) != TagSize {
		return nil, cserrors.ErrPaddingValidation
	}
	aead, err := chacha20poly1305.NewX(sk[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cserrors.ErrInvalidKey, err)
	}

	nonce := block.Payload[:chacha20poly1305.NonceSizeX]
	sealed := make([]byte, 0, len(block.Payload)-len(nonce)+TagSize)
	sealed = append(sealed, block.Payload[len(nonce):]...)
	sealed = append(sealed, block.Tag...)

	pt, err := aead.Open(sealed[:0], nonce, sealed, symmetricAD)
	if err != nil {
		return nil, cserrors.ErrPaddingValidation
	}
	return pt, nil
}

func sessionKeyOf(key crypto.Key) (*crypto.SessionKey, error) {
	sk, ok := key.(*crypto.SessionKey)
	if !ok || sk == nil || sk.IsZero() {
		return nil, fmt.Errorf("%w: symmetric mode needs a session key", cserrors.ErrInvalidKey)
	}
	return sk, nil
}
