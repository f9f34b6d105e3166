package crypto

import (
	"encoding/binary"
	"fmt"
	"math/big"

	cserrors "cryptosocket/internal/errors"
)

const lengthPrefixSize = 4

// MarshalPublicKey encodes pub as
//
//	[4-byte BE len][modulus][4-byte BE len][exponent]
//
// with both integers big-endian and minimal.
func MarshalPublicKey(pub *PublicKey) ([]byte, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	n := pub.N.Bytes()
	e := pub.E.Bytes()
	out := make([]byte, 0, 2*lengthPrefixSize+len(n)+len(e))
	out = binary.BigEndian.AppendUint32(out, uint32(len(n)))
	out = append(out, n...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(e)))
	out = append(out, e...)
	return out, nil
}

// ParsePublicKey decodes the MarshalPublicKey format and validates the result.
// Trailing bytes are rejected.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	n, rest, err := readField(b, MaxKeyBits/8)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, rest, err := readField(rest, len(n))
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", cserrors.ErrInvalidKey, len(rest))
	}
	if (len(n) > 0 && n[0] == 0) || (len(e) > 0 && e[0] == 0) {
		return nil, fmt.Errorf("%w: non-minimal integer encoding", cserrors.ErrInvalidKey)
	}
	pub := &PublicKey{
		N: new(big.Int).SetBytes(n),
		E: new(big.Int).SetBytes(e),
	}
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	return pub, nil
}

func readField(b []byte, limit int) (field, rest []byte, err error) {
	if len(b) < lengthPrefixSize {
		return nil, nil, fmt.Errorf("%w: truncated length", cserrors.ErrInvalidKey)
	}
	size := binary.BigEndian.Uint32(b)
	b = b[lengthPrefixSize:]
	if size == 0 || int64(size) > int64(limit) || int64(size) > int64(len(b)) {
		return nil, nil, fmt.Errorf("%w: field length %d", cserrors.ErrInvalidKey, size)
	}
	return b[:size], b[size:], nil
}
