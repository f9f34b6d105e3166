package seal

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cserrors "cryptosocket/internal/errors"
)

// Mode identifies the cipher that produced a CipherBlock.
type Mode byte

const (
	ModeRSA       Mode = 1
	ModeSymmetric Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeRSA:
		return "rsa"
	case ModeSymmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("mode(%d)", byte(m))
	}
}

// CipherBlock is one encrypted unit.
//
// In RSA mode Payload holds the framed chunks and Tag is empty. In symmetric
// mode Payload is nonce || ciphertext and Tag is the Poly1305 tag.
type CipherBlock struct {
	Mode    Mode
	Payload []byte
	Tag     []byte
}

// Len returns the serialised length of b.
func (b CipherBlock) Len() int { return len(b.Payload) + len(b.Tag) }

// Bytes serialises b as Payload || Tag. The mode is not encoded; both peers
// know it from context.
func (b CipherBlock) Bytes() []byte {
	out := make([]byte, 0, b.Len())
	out = append(out, b.Payload...)
	return append(out, b.Tag...)
}

// ParseCipherBlock splits raw bytes received for the given mode. It copies
// nothing; the block aliases raw.
func ParseCipherBlock(mode Mode, raw []byte) (CipherBlock, error) {
	switch mode {
	case ModeRSA:
		return CipherBlock{Mode: mode, Payload: raw}, nil
	case ModeSymmetric:
		if len(raw) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
			return CipherBlock{}, fmt.Errorf("%w: %d-byte symmetric block", cserrors.ErrFrame, len(raw))
		}
		split := len(raw) - chacha20poly1305.Overhead
		return CipherBlock{Mode: mode, Payload: raw[:split], Tag: raw[split:]}, nil
	default:
		return CipherBlock{}, fmt.Errorf("%w: unknown mode %d", cserrors.ErrFrame, byte(mode))
	}
}
