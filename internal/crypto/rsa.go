package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync/atomic"

	cserrors "cryptosocket/internal/errors"
)

const (
	// MinKeyBits is the smallest modulus accepted for generation or from a peer.
	MinKeyBits = 1024
	// MaxKeyBits bounds peer-supplied moduli so a hostile key cannot stall a handshake.
	MaxKeyBits = 8192
	// DefaultKeyBits is used when configuration does not say otherwise.
	DefaultKeyBits = 2048

	publicExponent      = 65537
	maxGenerateAttempts = 64
)

var bigOne = big.NewInt(1)

// privateOps counts private-key exponentiations.
var privateOps atomic.Uint64

// PublicKey is the shareable half of a KeyPair.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// Kind reports KindPublic.
func (k *PublicKey) Kind() KeyKind { return KindPublic }

// Size returns the modulus length in bytes.
func (k *PublicKey) Size() int { return (k.N.BitLen() + 7) / 8 }

// Validate checks the structural rules every public key must satisfy:
// an odd modulus of a supported size and an odd exponent in [3, N).
func (k *PublicKey) Validate() error {
	if k == nil || k.N == nil || k.E == nil {
		return fmt.Errorf("%w: missing modulus or exponent", cserrors.ErrInvalidKey)
	}
	if k.N.Sign() <= 0 || k.N.Bit(0) == 0 {
		return fmt.Errorf("%w: modulus must be positive and odd", cserrors.ErrInvalidKey)
	}
	if bits := k.N.BitLen(); bits < MinKeyBits || bits > MaxKeyBits {
		return fmt.Errorf("%w: modulus is %d bits", cserrors.ErrInvalidKey, bits)
	}
	if k.E.Cmp(big.NewInt(3)) < 0 || k.E.Bit(0) == 0 || k.E.Cmp(k.N) >= 0 {
		return fmt.Errorf("%w: bad public exponent", cserrors.ErrInvalidKey)
	}
	return nil
}

// Equal reports whether two public keys have the same modulus and exponent.
func (k *PublicKey) Equal(o *PublicKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.N.Cmp(o.N) == 0 && k.E.Cmp(o.E) == 0
}

// KeyPair is an RSA key with its CRT parameters. It satisfies d·e ≡ 1 mod φ(N).
type KeyPair struct {
	PublicKey

	D    *big.Int
	P    *big.Int
	Q    *big.Int
	Dp   *big.Int // D mod (P-1)
	Dq   *big.Int // D mod (Q-1)
	Qinv *big.Int // Q⁻¹ mod P

	Bits int
}

// Kind reports KindPrivate.
func (kp *KeyPair) Kind() KeyKind { return KindPrivate }

// Public returns a copy of the public half that shares no memory with kp.
func (kp *KeyPair) Public() *PublicKey {
	return &PublicKey{
		N: new(big.Int).Set(kp.N),
		E: new(big.Int).Set(kp.E),
	}
}

// Wiped reports whether the secret half has been destroyed.
func (kp *KeyPair) Wiped() bool { return kp.D == nil }

// Wipe overwrites every secret component in place. It is idempotent.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	for _, x := range []*big.Int{kp.D, kp.P, kp.Q, kp.Dp, kp.Dq, kp.Qinv} {
		wipeInt(x)
	}
	kp.D, kp.P, kp.Q, kp.Dp, kp.Dq, kp.Qinv = nil, nil, nil, nil, nil, nil
}

// Validate checks the public half and that the private components agree with it.
func (kp *KeyPair) Validate() error {
	if kp == nil {
		return fmt.Errorf("%w: nil key pair", cserrors.ErrInvalidKey)
	}
	if err := kp.PublicKey.Validate(); err != nil {
		return err
	}
	if kp.Wiped() || kp.P == nil || kp.Q == nil || kp.Dp == nil || kp.Dq == nil || kp.Qinv == nil {
		return fmt.Errorf("%w: private components missing", cserrors.ErrInvalidKey)
	}
	if new(big.Int).Mul(kp.P, kp.Q).Cmp(kp.N) != 0 {
		return fmt.Errorf("%w: modulus does not match primes", cserrors.ErrInvalidKey)
	}
	for _, prime := range []*big.Int{kp.P, kp.Q} {
		pm1 := new(big.Int).Sub(prime, bigOne)
		de := new(big.Int).Mul(kp.D, kp.E)
		if de.Mod(de, pm1).Cmp(bigOne) != 0 {
			return fmt.Errorf("%w: private exponent does not invert e", cserrors.ErrInvalidKey)
		}
	}
	return nil
}

// GenerateKeyPair searches for a fresh key pair of the given modulus size.
//
// The search runs on its own goroutine so that cancelling ctx returns at once
// regardless of how far the prime search has got. A result produced after
// cancellation is wiped and discarded.
func GenerateKeyPair(ctx context.Context, bits int) (*KeyPair, error) {
	if bits < MinKeyBits || bits > MaxKeyBits || bits%2 != 0 {
		return nil, fmt.Errorf("%w: unsupported key size %d", cserrors.ErrKeyGeneration, bits)
	}

	type result struct {
		kp  *KeyPair
		err error
	}
	done := make(chan result, 1)
	go func() {
		kp, err := generate(ctx, rand.Reader, bits)
		done <- result{kp, err}
	}()

	select {
	case r := <-done:
		return r.kp, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.kp != nil {
				r.kp.Wipe()
			}
		}()
		return nil, fmt.Errorf("%w: %w", cserrors.ErrCancelled, ctx.Err())
	}
}

func generate(ctx context.Context, random io.Reader, bits int) (*KeyPair, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", cserrors.ErrCancelled, err)
		}

		p, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cserrors.ErrKeyGeneration, err)
		}
		q, err := rand.Prime(random, bits-bits/2)
		if err != nil {
			wipeInt(p)
			return nil, fmt.Errorf("%w: %w", cserrors.ErrKeyGeneration, err)
		}

		kp, ok := assemble(p, q, bits)
		if ok {
			return kp, nil
		}
		wipeInt(p)
		wipeInt(q)
	}
	return nil, fmt.Errorf("%w: no key after %d attempts", cserrors.ErrKeyGeneration, maxGenerateAttempts)
}

// assemble derives the remaining parameters from two primes. It reports false
// when the primes cannot form a key of the requested size with e = 65537.
func assemble(p, q *big.Int, bits int) (*KeyPair, bool) {
	if p.Cmp(q) == 0 {
		return nil, false
	}
	n := new(big.Int).Mul(p, q)
	if n.BitLen() != bits {
		return nil, false
	}

	e := big.NewInt(publicExponent)
	pm1 := new(big.Int).Sub(p, bigOne)
	qm1 := new(big.Int).Sub(q, bigOne)
	phi := new(big.Int).Mul(pm1, qm1)
	defer wipeInt(phi)

	d := new(big.Int).ModInverse(e, phi)
	if d == nil { // gcd(e, φ) != 1
		wipeInt(pm1)
		wipeInt(qm1)
		return nil, false
	}
	qinv := new(big.Int).ModInverse(q, p)

	kp := &KeyPair{
		PublicKey: PublicKey{N: n, E: e},
		D:         d,
		P:         p,
		Q:         q,
		Dp:        new(big.Int).Mod(d, pm1),
		Dq:        new(big.Int).Mod(d, qm1),
		Qinv:      qinv,
		Bits:      bits,
	}
	wipeInt(pm1)
	wipeInt(qm1)
	return kp, true
}

// RawEncrypt computes m^e mod N.
func RawEncrypt(pub *PublicKey, m *big.Int) (*big.Int, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	if m == nil || m.Sign() < 0 || m.Cmp(pub.N) >= 0 {
		return nil, cserrors.ErrValueOutOfRange
	}
	return new(big.Int).Exp(m, pub.E, pub.N), nil
}

// RawDecrypt computes c^d mod N using the CRT parameters.
//
// The input is blinded with a fresh random factor before exponentiation and
// the result is checked against the public exponent before it is returned.
func RawDecrypt(kp *KeyPair, c *big.Int) (*big.Int, error) {
	if kp == nil || kp.Wiped() || kp.Dp == nil || kp.Dq == nil || kp.Qinv == nil {
		return nil, fmt.Errorf("%w: private key unavailable", cserrors.ErrInvalidKey)
	}
	if err := kp.PublicKey.Validate(); err != nil {
		return nil, err
	}
	if c == nil || c.Sign() < 0 || c.Cmp(kp.N) >= 0 {
		return nil, cserrors.ErrValueOutOfRange
	}

	r, rInv, err := blindingFactor(rand.Reader, kp.N)
	if err != nil {
		return nil, err
	}
	defer wipeInt(r)
	defer wipeInt(rInv)

	blinded := new(big.Int).Exp(r, kp.E, kp.N)
	blinded.Mul(blinded, c).Mod(blinded, kp.N)
	defer wipeInt(blinded)

	privateOps.Add(1)
	m1 := new(big.Int).Exp(blinded, kp.Dp, kp.P)
	m2 := new(big.Int).Exp(blinded, kp.Dq, kp.Q)
	defer wipeInt(m1)
	defer wipeInt(m2)

	h := new(big.Int).Sub(m1, m2)
	h.Mul(h, kp.Qinv).Mod(h, kp.P)
	defer wipeInt(h)

	m := new(big.Int).Mul(h, kp.Q)
	m.Add(m, m2)
	m.Mul(m, rInv).Mod(m, kp.N)

	if new(big.Int).Exp(m, kp.E, kp.N).Cmp(c) != 0 {
		wipeInt(m)
		return nil, fmt.Errorf("%w: decryption self-check failed", cserrors.ErrInvalidKey)
	}
	return m, nil
}

// blindingFactor returns a random r invertible mod n together with r⁻¹.
func blindingFactor(random io.Reader, n *big.Int) (r, rInv *big.Int, err error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		r, err = rand.Int(random, n)
		if err != nil {
			return nil, nil, fmt.Errorf("blinding: %w", err)
		}
		if r.Sign() == 0 {
			continue
		}
		if rInv = new(big.Int).ModInverse(r, n); rInv != nil {
			return r, rInv, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: no blinding factor", cserrors.ErrInvalidKey)
}
