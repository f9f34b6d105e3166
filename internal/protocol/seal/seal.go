package seal

import (
	"fmt"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
)

// DefaultMaxPayload is the plaintext limit used when none is configured.
const DefaultMaxPayload = 1 << 20

// Encrypter seals plaintext up to MaxPayload bytes, choosing the cipher from
// the key kind.
type Encrypter struct {
	MaxPayload int

	rsa RSA
	sym Symmetric
}

// NewEncrypter returns an Encrypter with the given limit; values <= 0 select
// DefaultMaxPayload.
func NewEncrypter(maxPayload int) *Encrypter {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Encrypter{MaxPayload: maxPayload}
}

// Encrypt fails with ErrPayloadTooLarge exactly when len(plaintext) > MaxPayload.
func (e *Encrypter) Encrypt(plaintext []byte, key crypto.Key) (CipherBlock, error) {
	if len(plaintext) > e.MaxPayload {
		return CipherBlock{}, fmt.Errorf("%w: %d bytes, limit %d",
			cserrors.ErrPayloadTooLarge, len(plaintext), e.MaxPayload)
	}
	if key == nil {
		return CipherBlock{}, fmt.Errorf("%w: nil key", cserrors.ErrInvalidKey)
	}
	switch key.Kind() {
	case crypto.KindPublic, crypto.KindPrivate:
		return e.rsa.Encrypt(plaintext, key)
	case crypto.KindSession:
		return e.sym.Encrypt(plaintext, key)
	default:
		return CipherBlock{}, fmt.Errorf("%w: unsupported key kind %s", cserrors.ErrInvalidKey, key.Kind())
	}
}

// Decrypter opens CipherBlocks, choosing the cipher from the block mode.
type Decrypter struct {
	rsa RSA
	sym Symmetric
}

// NewDecrypter returns a ready Decrypter.
func NewDecrypter() *Decrypter { return &Decrypter{} }

// Decrypt returns ErrPaddingValidation for a wrong key and for corruption alike.
func (d *Decrypter) Decrypt(block CipherBlock, key crypto.Key) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", cserrors.ErrInvalidKey)
	}
	switch block.Mode {
	case ModeRSA:
		return d.rsa.Decrypt(block, key)
	case ModeSymmetric:
		return d.sym.Decrypt(block, key)
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", cserrors.ErrFrame, byte(block.Mode))
	}
}
