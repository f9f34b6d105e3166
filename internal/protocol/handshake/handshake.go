package handshake

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/seal"
	"cryptosocket/internal/protocol/wire"
)

// Role selects which side of the exchange Run plays.
type Role int

const (
	RoleClient Role = iota + 1
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// maxFrame bounds every handshake frame: two length-prefixed integers of at
// most MaxKeyBits each.
const maxFrame = 2*wire.HeaderSize + 2*crypto.MaxKeyBits/8

const transcriptLabel = "cryptosocket handshake v1"

// Result is the outcome of a successful exchange. The caller owns Send and
// Recv and must Wipe them.
type Result struct {
	Peer *crypto.PublicKey
	Send *crypto.SessionKey
	Recv *crypto.SessionKey
}

// Wipe zeroes both directional keys.
func (r *Result) Wipe() {
	if r == nil {
		return
	}
	r.Send.Wipe()
	r.Recv.Wipe()
}

// Run performs the exchange as role using local as this side's key pair.
// Every failure wraps errors.ErrKeyExchange; the underlying cause stays in
// the chain.
func Run(rw io.ReadWriter, role Role, local *crypto.KeyPair) (*Result, error) {
	if err := local.Validate(); err != nil {
		return nil, fmt.Errorf("%w: local key: %w", cserrors.ErrKeyExchange, err)
	}
	var (
		res *Result
		err error
	)
	switch role {
	case RoleClient:
		res, err = runClient(rw, local)
	case RoleServer:
		res, err = runServer(rw, local)
	default:
		err = fmt.Errorf("unknown role %d", role)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cserrors.ErrKeyExchange, role, err)
	}
	return res, nil
}

func runClient(rw io.ReadWriter, local *crypto.KeyPair) (*Result, error) {
	t := newTranscript()

	ours, err := crypto.MarshalPublicKey(local.Public())
	if err != nil {
		return nil, err
	}
	if err := send(rw, t, ours); err != nil {
		return nil, err
	}

	theirs, err := recv(rw, t)
	if err != nil {
		return nil, fmt.Errorf("read server key: %w", err)
	}
	peer, err := crypto.ParsePublicKey(theirs)
	if err != nil {
		return nil, fmt.Errorf("server key: %w", err)
	}

	master, err := crypto.NewSessionKey()
	if err != nil {
		return nil, err
	}
	defer master.Wipe()

	wrapped, err := seal.RSA{}.Encrypt(master[:], peer)
	if err != nil {
		return nil, fmt.Errorf("wrap session key: %w", err)
	}
	if err := send(rw, t, wrapped.Bytes()); err != nil {
		return nil, err
	}

	sum := t.sum()
	c2s, s2c, err := crypto.DeriveDirectionalKeys(master, sum)
	if err != nil {
		return nil, err
	}
	res := &Result{Peer: peer, Send: c2s, Recv: s2c}

	confirm, err := wire.ReadFrame(rw, maxFrame)
	if err != nil {
		res.Wipe()
		return nil, fmt.Errorf("read confirmation: %w", err)
	}
	block, err := seal.ParseCipherBlock(seal.ModeSymmetric, confirm)
	if err != nil {
		res.Wipe()
		return nil, fmt.Errorf("confirmation: %w", err)
	}
	got, err := seal.Symmetric{}.Decrypt(block, s2c)
	if err != nil || subtle.ConstantTimeCompare(got, sum) != 1 {
		res.Wipe()
		return nil, errors.New("server did not confirm the session key")
	}
	return res, nil
}

func runServer(rw io.ReadWriter, local *crypto.KeyPair) (*Result, error) {
	t := newTranscript()

	theirs, err := recv(rw, t)
	if err != nil {
		return nil, fmt.Errorf("read client key: %w", err)
	}
	peer, err := crypto.ParsePublicKey(theirs)
	if err != nil {
		return nil, fmt.Errorf("client key: %w", err)
	}

	ours, err := crypto.MarshalPublicKey(local.Public())
	if err != nil {
		return nil, err
	}
	if err := send(rw, t, ours); err != nil {
		return nil, err
	}

	wrapped, err := recv(rw, t)
	if err != nil {
		return nil, fmt.Errorf("read session key: %w", err)
	}
	raw, err := seal.RSA{}.Decrypt(seal.CipherBlock{Mode: seal.ModeRSA, Payload: wrapped}, local)
	if err != nil {
		return nil, fmt.Errorf("unwrap session key: %w", err)
	}
	master, err := crypto.SessionKeyFromBytes(raw)
	crypto.Wipe(raw)
	if err != nil {
		return nil, err
	}
	defer master.Wipe()

	sum := t.sum()
	c2s, s2c, err := crypto.DeriveDirectionalKeys(master, sum)
	if err != nil {
		return nil, err
	}
	res := &Result{Peer: peer, Send: s2c, Recv: c2s}

	confirm, err := seal.Symmetric{}.Encrypt(sum, s2c)
	if err != nil {
		res.Wipe()
		return nil, err
	}
	if err := wire.WriteFrame(rw, confirm.Bytes()); err != nil {
		res.Wipe()
		return nil, err
	}
	return res, nil
}

func send(w io.Writer, t *transcript, b []byte) error {
	t.add(b)
	return wire.WriteFrame(w, b)
}

func recv(r io.Reader, t *transcript) ([]byte, error) {
	b, err := wire.ReadFrame(r, maxFrame)
	if err != nil {
		return nil, err
	}
	t.add(b)
	return b, nil
}

type transcript struct {
	buf []byte
}

func newTranscript() *transcript {
	return &transcript{buf: []byte(transcriptLabel)}
}

func (t *transcript) add(b []byte) {
	t.buf = binary.BigEndian.AppendUint32(t.buf, uint32(len(b)))
	t.buf = append(t.buf, b...)
}

func (t *transcript) sum() []byte {
	s := sha256.Sum256(t.buf)
	return s[:]
}
