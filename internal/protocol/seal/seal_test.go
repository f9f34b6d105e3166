package seal_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/seal"
)

var (
	keyOnce sync.Once
	keys    [2]*crypto.KeyPair
	keyErr  error
)

// makeKeyPairs returns two distinct 1024-bit key pairs shared across tests.
func makeKeyPairs(t *testing.T) (*crypto.KeyPair, *crypto.KeyPair) {
	t.Helper()
	keyOnce.Do(func() {
		for i := range keys {
			if keys[i], keyErr = crypto.GenerateKeyPair(context.Background(), crypto.MinKeyBits); keyErr != nil {
				return
			}
		}
	})
	if keyErr != nil {
		t.Fatalf("GenerateKeyPair: %v", keyErr)
	}
	return keys[0], keys[1]
}

func makeSessionKey(t *testing.T) *crypto.SessionKey {
	t.Helper()
	k, err := crypto.NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey: %v", err)
	}
	return k
}

func TestRSA_RoundTrip_MultiChunk(t *testing.T) {
	kp, _ := makeKeyPairs(t)
	enc := seal.NewEncrypter(0)
	dec := seal.NewDecrypter()
	chunk := seal.ChunkSize(kp.Public())

	for _, n := range []int{0, 1, chunk, chunk + 1, 3*chunk + 7} {
		msg := bytes.Repeat([]byte{byte(n)}, n)
		block, err := enc.Encrypt(msg, kp.Public())
		if err != nil {
			t.Fatalf("Encrypt(%d): %v", n, err)
		}
		if block.Mode != seal.ModeRSA {
			t.Fatalf("want rsa mode, got %s", block.Mode)
		}
		chunks := max(1, (n+chunk-1)/chunk)
		if want := chunks * (4 + kp.Size()); block.Len() != want {
			t.Fatalf("n=%d: want %d bytes, got %d", n, want, block.Len())
		}
		got, err := dec.Decrypt(block, kp)
		if err != nil {
			t.Fatalf("Decrypt(%d): %v", n, err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("n=%d: round trip mismatch", n)
		}
	}
}

func TestRSA_HelloWorld2048(t *testing.T) {
	if testing.Short() {
		t.Skip("2048-bit key generation")
	}
	kp, err := crypto.GenerateKeyPair(context.Background(), 2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	defer kp.Wipe()

	block, err := seal.NewEncrypter(0).Encrypt([]byte("hello world"), kp.Public())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := seal.NewDecrypter().Decrypt(block, kp)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("want %q, got %q", "hello world", got)
	}
}

func TestSymmetric_RoundTrip(t *testing.T) {
	key := makeSessionKey(t)
	enc := seal.NewEncrypter(0)
	dec := seal.NewDecrypter()

	for _, msg := range [][]byte{{}, []byte("ping"), bytes.Repeat([]byte("x"), 70000)} {
		block, err := enc.Encrypt(msg, key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if len(block.Tag) != seal.TagSize || block.Len() != len(msg)+seal.SymmetricOverhead {
			t.Fatalf("unexpected block shape: payload=%d tag=%d", len(block.Payload), len(block.Tag))
		}

		parsed, err := seal.ParseCipherBlock(seal.ModeSymmetric, block.Bytes())
		if err != nil {
			t.Fatalf("ParseCipherBlock: %v", err)
		}
		got, err := dec.Decrypt(parsed, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatal("round trip mismatch")
		}
	}
}

func TestDecrypt_WrongKeyAndCorruptionLookTheSame(t *testing.T) {
	alice, bob := makeKeyPairs(t)
	sk1, sk2 := makeSessionKey(t), makeSessionKey(t)
	enc := seal.NewEncrypter(0)
	dec := seal.NewDecrypter()

	rsaBlock, err := enc.Encrypt([]byte("for alice"), alice.Public())
	if err != nil {
		t.Fatalf("Encrypt rsa: %v", err)
	}
	symBlock, err := enc.Encrypt([]byte("for sk1"), sk1)
	if err != nil {
		t.Fatalf("Encrypt symmetric: %v", err)
	}

	flip := func(b seal.CipherBlock, at int) seal.CipherBlock {
		raw := b.Bytes()
		raw[at] ^= 0x80
		out, err := seal.ParseCipherBlock(b.Mode, raw)
		if err != nil {
			t.Fatalf("ParseCipherBlock: %v", err)
		}
		return out
	}

	// One chunk re-framed one byte shorter than the modulus.
	shortChunk := binary.BigEndian.AppendUint32(nil, uint32(alice.Size()-1))
	shortChunk = append(shortChunk, rsaBlock.Payload[5:]...)

	cases := []struct {
		name  string
		block seal.CipherBlock
		key   crypto.Key
	}{
		{"rsa wrong key", rsaBlock, bob},
		{"rsa chunk shorter than modulus", seal.CipherBlock{Mode: seal.ModeRSA, Payload: shortChunk}, alice},
		{"rsa bit flip", flip(rsaBlock, 4+alice.Size()/2), alice},
		{"symmetric wrong key", symBlock, sk2},
		{"symmetric bit flip in ciphertext", flip(symBlock, len(symBlock.Payload)-1), sk1},
		{"symmetric bit flip in tag", flip(symBlock, symBlock.Len()-1), sk1},
		{"symmetric bit flip in nonce", flip(symBlock, 0), sk1},
		{"session key on rsa block", rsaBlock, sk1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dec.Decrypt(tc.block, tc.key)
			if err != cserrors.ErrPaddingValidation {
				t.Fatalf("want bare ErrPaddingValidation, got %v", err)
			}
			if !errors.Is(err, cserrors.ErrKeyMismatch) {
				t.Fatal("ErrKeyMismatch must match the same failure")
			}
		})
	}
}

func TestEncrypt_PayloadLimitBoundary(t *testing.T) {
	kp, _ := makeKeyPairs(t)
	key := makeSessionKey(t)
	const limit = 300
	enc := seal.NewEncrypter(limit)

	for _, k := range []crypto.Key{key, kp.Public()} {
		if _, err := enc.Encrypt(make([]byte, limit), k); err != nil {
			t.Fatalf("%s: payload at limit rejected: %v", k.Kind(), err)
		}
		if _, err := enc.Encrypt(make([]byte, limit+1), k); !errors.Is(err, cserrors.ErrPayloadTooLarge) {
			t.Fatalf("%s: want ErrPayloadTooLarge, got %v", k.Kind(), err)
		}
	}
}

func TestEncrypt_InvalidKeys(t *testing.T) {
	enc := seal.NewEncrypter(0)
	var zero crypto.SessionKey

	for name, k := range map[string]crypto.Key{
		"nil":              nil,
		"zero session key": &zero,
		"nil public key":   (*crypto.PublicKey)(nil),
		"malformed public": &crypto.PublicKey{},
	} {
		if _, err := enc.Encrypt([]byte("x"), k); !errors.Is(err, cserrors.ErrInvalidKey) {
			t.Fatalf("%s: want ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestRSA_TruncatedChunkIsFrameError(t *testing.T) {
	kp, _ := makeKeyPairs(t)
	block, err := seal.NewEncrypter(0).Encrypt([]byte("truncate me"), kp.Public())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for _, cut := range []int{1, kp.Size(), kp.Size() + 2} {
		short, _ := seal.ParseCipherBlock(seal.ModeRSA, block.Payload[:len(block.Payload)-cut])
		if _, err := seal.NewDecrypter().Decrypt(short, kp); !errors.Is(err, cserrors.ErrFrame) {
			t.Fatalf("cut=%d: want ErrFrame, got %v", cut, err)
		}
	}
}

func TestDecrypt_RSA_AfterWipe(t *testing.T) {
	kp, err := crypto.GenerateKeyPair(context.Background(), crypto.MinKeyBits)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	block, err := seal.NewEncrypter(0).Encrypt([]byte("x"), kp.Public())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	kp.Wipe()
	if _, err := seal.NewDecrypter().Decrypt(block, kp); !errors.Is(err, cserrors.ErrInvalidKey) {
		t.Fatalf("want ErrInvalidKey, got %v", err)
	}
}
