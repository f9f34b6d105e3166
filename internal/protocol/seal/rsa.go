package seal

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
)

const chunkPrefixSize = 4

// RSA encrypts under a public key and decrypts under the matching KeyPair.
type RSA struct {
	// Random supplies OAEP seeds. Nil means crypto/rand.
	Random io.Reader
}

func (RSA) Mode() Mode { return ModeRSA }

// ChunkSize returns the plaintext bytes carried per block for pub.
func ChunkSize(pub *crypto.PublicKey) int { return crypto.MaxOAEPMessage(pub.Size()) }

// Encrypt splits plaintext into chunks of ChunkSize bytes and seals each one.
// An empty plaintext still produces one block.
func (c RSA) Encrypt(plaintext []byte, key crypto.Key) (CipherBlock, error) {
	pub, err := publicKeyOf(key)
	if err != nil {
		return CipherBlock{}, err
	}
	random := c.Random
	if random == nil {
		random = rand.Reader
	}

	k := pub.Size()
	size := crypto.MaxOAEPMessage(k)
	if size <= 0 {
		return CipherBlock{}, fmt.Errorf("%w: modulus too small for OAEP", cserrors.ErrInvalidKey)
	}
	chunks := (len(plaintext) + size - 1) / size
	if chunks == 0 {
		chunks = 1
	}

	out := make([]byte, 0, chunks*(chunkPrefixSize+k))
	for i := 0; i < chunks; i++ {
		end := min((i+1)*size, len(plaintext))
		block, err := crypto.EncryptOAEP(random, pub, plaintext[i*size:end])
		if err != nil {
			return CipherBlock{}, err
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(block)))
		out = append(out, block...)
	}
	return CipherBlock{Mode: ModeRSA, Payload: out}, nil
}

// Decrypt opens every chunk before reporting. A chunk whose length disagrees
// with the modulus counts as a padding failure and costs the same private
// operation as any other chunk; a prefix that overruns the payload is a
// framing error.
func (c RSA) Decrypt(block CipherBlock, key crypto.Key) ([]byte, error) {
	kp, ok := key.(*crypto.KeyPair)
	if !ok || kp == nil {
		return nil, cserrors.ErrKeyMismatch
	}
	if kp.Wiped() || kp.N == nil {
		return nil, fmt.Errorf("%w: private key unavailable", cserrors.ErrInvalidKey)
	}
	if block.Mode != ModeRSA || len(block.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty rsa block", cserrors.ErrFrame)
	}

	var (
		plaintext []byte
		failed    bool
	)
	rest := block.Payload
	for len(rest) > 0 {
		if len(rest) < chunkPrefixSize {
			crypto.Wipe(plaintext)
			return nil, fmt.Errorf("%w: truncated chunk length", cserrors.ErrFrame)
		}
		n := binary.BigEndian.Uint32(rest)
		rest = rest[chunkPrefixSize:]
		if uint64(n) > uint64(len(rest)) {
			crypto.Wipe(plaintext)
			return nil, fmt.Errorf("%w: chunk length %d exceeds remaining %d", cserrors.ErrFrame, n, len(rest))
		}
		chunk := rest[:n]
		rest = rest[n:]

		pt, err := crypto.DecryptOAEP(kp, chunk)
		if err != nil {
			if !errors.Is(err, cserrors.ErrPaddingValidation) && !errors.Is(err, cserrors.ErrInvalidKey) {
				crypto.Wipe(plaintext)
				return nil, err
			}
			failed = true
			continue
		}
		plaintext = append(plaintext, pt...)
		crypto.Wipe(pt)
	}

	if failed {
		crypto.Wipe(plaintext)
		return nil, cserrors.ErrPaddingValidation
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func publicKeyOf(key crypto.Key) (*crypto.PublicKey, error) {
	switch k := key.(type) {
	case *crypto.PublicKey:
		if k == nil {
			break
		}
		return k, k.Validate()
	case *crypto.KeyPair:
		if k == nil {
			break
		}
		return &k.PublicKey, k.PublicKey.Validate()
	}
	return nil, fmt.Errorf("%w: rsa mode needs a public key", cserrors.ErrInvalidKey)
}
