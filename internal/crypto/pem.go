package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	cserrors "cryptosocket/internal/errors"
)

const (
	pemPrivateType = "RSA PRIVATE KEY"
	pemPublicType  = "PUBLIC KEY"
)

// MarshalPrivateKeyPEM encodes kp as a PKCS#1 PEM block. The caller owns the
// returned bytes and should Wipe them once they have been sealed.
func MarshalPrivateKeyPEM(kp *KeyPair) ([]byte, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	std := kp.toStd()
	defer wipeStd(std)

	der := x509.MarshalPKCS1PrivateKey(std)
	defer Wipe(der)
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateType, Bytes: der}), nil
}

// ParsePrivateKeyPEM decodes a PKCS#1 PEM block produced by MarshalPrivateKeyPEM.
func ParsePrivateKeyPEM(b []byte) (*KeyPair, error) {
	block, _ := pem.Decode(b)
	if block == nil || block.Type != pemPrivateType {
		return nil, fmt.Errorf("%w: no %s block", cserrors.ErrInvalidKey, pemPrivateType)
	}
	defer Wipe(block.Bytes)

	std, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cserrors.ErrInvalidKey, err)
	}
	defer wipeStd(std)

	if len(std.Primes) != 2 {
		return nil, fmt.Errorf("%w: multi-prime keys are not supported", cserrors.ErrInvalidKey)
	}
	p := new(big.Int).Set(std.Primes[0])
	q := new(big.Int).Set(std.Primes[1])
	pm1 := new(big.Int).Sub(p, bigOne)
	qm1 := new(big.Int).Sub(q, bigOne)
	defer wipeInt(pm1)
	defer wipeInt(qm1)

	d := new(big.Int).Set(std.D)
	qinv := new(big.Int).ModInverse(q, p)
	if qinv == nil {
		return nil, fmt.Errorf("%w: primes are not coprime", cserrors.ErrInvalidKey)
	}
	kp := &KeyPair{
		PublicKey: PublicKey{N: new(big.Int).Set(std.N), E: big.NewInt(int64(std.E))},
		D:         d,
		P:         p,
		Q:         q,
		Dp:        new(big.Int).Mod(d, pm1),
		Dq:        new(big.Int).Mod(d, qm1),
		Qinv:      qinv,
		Bits:      std.N.BitLen(),
	}
	if err := kp.Validate(); err != nil {
		kp.Wipe()
		return nil, err
	}
	return kp, nil
}

// MarshalPublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" block for export.
func MarshalPublicKeyPEM(pub *PublicKey) ([]byte, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	if !pub.E.IsInt64() || pub.E.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: exponent too large for PKIX", cserrors.ErrInvalidKey)
	}
	der, err := x509.MarshalPKIXPublicKey(&rsa.PublicKey{N: pub.N, E: int(pub.E.Int64())})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cserrors.ErrInvalidKey, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicType, Bytes: der}), nil
}

// ParsePublicKeyPEM decodes a PKIX "PUBLIC KEY" block holding an RSA key.
func ParsePublicKeyPEM(b []byte) (*PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil || block.Type != pemPublicType {
		return nil, fmt.Errorf("%w: no %s block", cserrors.ErrInvalidKey, pemPublicType)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cserrors.ErrInvalidKey, err)
	}
	std, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", cserrors.ErrInvalidKey)
	}
	pub := &PublicKey{N: new(big.Int).Set(std.N), E: big.NewInt(int64(std.E))}
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	return pub, nil
}

func (kp *KeyPair) toStd() *rsa.PrivateKey {
	std := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: new(big.Int).Set(kp.N), E: int(kp.E.Int64())},
		D:         new(big.Int).Set(kp.D),
		Primes:    []*big.Int{new(big.Int).Set(kp.P), new(big.Int).Set(kp.Q)},
	}
	std.Precompute()
	return std
}

func wipeStd(k *rsa.PrivateKey) {
	wipeInt(k.D)
	for _, p := range k.Primes {
		wipeInt(p)
	}
	wipeInt(k.Precomputed.Dp)
	wipeInt(k.Precomputed.Dq)
	wipeInt(k.Precomputed.Qinv)
}
