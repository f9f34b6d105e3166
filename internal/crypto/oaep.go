package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"

	cserrors "cryptosocket/internal/errors"
)

const oaepHashSize = sha256.Size

// emptyLabelHash is SHA-256 of the empty OAEP label.
var emptyLabelHash = sha256.Sum256(nil)

// MaxOAEPMessage returns the largest message that fits one OAEP block for a
// modulus of k bytes.
func MaxOAEPMessage(k int) int { return k - 2*oaepHashSize - 2 }

// EncryptOAEP pads msg with OAEP-SHA256 and encrypts it under pub. The
// result is always exactly pub.Size() bytes.
func EncryptOAEP(random io.Reader, pub *PublicKey, msg []byte) ([]byte, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	k := pub.Size()
	if len(msg) > MaxOAEPMessage(k) {
		return nil, fmt.Errorf("%w: %d bytes exceeds block capacity %d",
			cserrors.ErrPayloadTooLarge, len(msg), MaxOAEPMessage(k))
	}

	// em = 0x00 || seed || lHash || PS || 0x01 || msg
	em := make([]byte, k)
	defer Wipe(em)
	seed := em[1 : 1+oaepHashSize]
	db := em[1+oaepHashSize:]

	copy(db[:oaepHashSize], emptyLabelHash[:])
	db[len(db)-len(msg)-1] = 0x01
	copy(db[len(db)-len(msg):], msg)

	if _, err := io.ReadFull(random, seed); err != nil {
		return nil, fmt.Errorf("oaep seed: %w", err)
	}
	mgf1XOR(db, seed)
	mgf1XOR(seed, db)

	m := new(big.Int).SetBytes(em)
	defer wipeInt(m)
	c, err := RawEncrypt(pub, m)
	if err != nil {
		return nil, err
	}
	return c.FillBytes(make([]byte, k)), nil
}

// DecryptOAEP decrypts and unpads a single block. Every failure, including
// a block of the wrong length or a value outside [0, N), returns
// ErrPaddingValidation. Such blocks are reduced mod N and run through the
// same private operation and padding scan as a well-formed block, so the
// failure takes as long as a corrupted ciphertext.
func DecryptOAEP(kp *KeyPair, block []byte) ([]byte, error) {
	if kp == nil || kp.N == nil {
		return nil, fmt.Errorf("%w: nil key pair", cserrors.ErrInvalidKey)
	}
	k := kp.Size()
	if k < 2*oaepHashSize+2 {
		return nil, fmt.Errorf("%w: modulus too small for OAEP", cserrors.ErrInvalidKey)
	}

	c := new(big.Int).SetBytes(block)
	defer wipeInt(c)
	wellFormed := 0
	if len(block) == k && c.Cmp(kp.N) < 0 {
		wellFormed = 1
	} else {
		c.Mod(c, kp.N)
	}

	m, err := RawDecrypt(kp, c)
	if err != nil {
		return nil, err
	}
	em := m.FillBytes(make([]byte, k))
	wipeInt(m)
	defer Wipe(em)

	firstByteIsZero := subtle.ConstantTimeByteEq(em[0], 0)
	seed := em[1 : 1+oaepHashSize]
	db := em[1+oaepHashSize:]
	mgf1XOR(seed, db)
	mgf1XOR(db, seed)

	labelOK := subtle.ConstantTimeCompare(emptyLabelHash[:], db[:oaepHashSize])

	// Scan PS || 0x01 || msg for the separator without branching on secret data.
	rest := db[oaepHashSize:]
	lookingForIndex, index, invalid := 1, 0, 0
	for i := range rest {
		equals0 := subtle.ConstantTimeByteEq(rest[i], 0)
		equals1 := subtle.ConstantTimeByteEq(rest[i], 1)
		index = subtle.ConstantTimeSelect(lookingForIndex&equals1, i, index)
		lookingForIndex = subtle.ConstantTimeSelect(equals1, 0, lookingForIndex)
		invalid = subtle.ConstantTimeSelect(lookingForIndex&^equals0, 1, invalid)
	}
	if wellFormed&firstByteIsZero&labelOK&^invalid&^lookingForIndex != 1 {
		return nil, cserrors.ErrPaddingValidation
	}

	out := make([]byte, len(rest)-index-1)
	copy(out, rest[index+1:])
	return out, nil
}

// mgf1XOR xors out with MGF1-SHA256(seed).
func mgf1XOR(out, seed []byte) {
	var counter [4]byte
	var digest []byte
	done := 0
	for done < len(out) {
		h := sha256.New()
		h.Write(seed)
		h.Write(counter[:])
		digest = h.Sum(digest[:0])
		for i := 0; i < len(digest) && done < len(out); i++ {
			out[done] ^= digest[i]
			done++
		}
		for i := len(counter) - 1; i >= 0; i-- {
			counter[i]++
			if counter[i] != 0 {
				break
			}
		}
	}
	Wipe(digest)
}
