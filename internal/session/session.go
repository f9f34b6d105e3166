package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/handshake"
	"cryptosocket/internal/protocol/seal"
	"cryptosocket/internal/protocol/wire"
)

const seqSize = 8

// aLongTimeAgo is a deadline that has already passed; setting it aborts
// blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Session is one encrypted connection. Create it with New and bring it up
// with exactly one of Connect, Accept or Attach.
type Session struct {
	cfg      Config
	enc      *seal.Encrypter
	dec      *seal.Decrypter
	maxFrame int
	done     chan struct{}

	mu       sync.Mutex
	state    State
	conn     net.Conn
	peer     *crypto.PublicKey
	localPub *crypto.PublicKey
	faultErr error
	closing  bool

	// Only the goroutine running the handshake touches these.
	local     *crypto.KeyPair
	ownsLocal bool

	sendMu  sync.Mutex
	sendKey *crypto.SessionKey
	sendSeq uint64

	recvMu  sync.Mutex
	recvKey *crypto.SessionKey
	recvSeq uint64
}

// New returns a Disconnected session.
func New(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:      cfg,
		enc:      seal.NewEncrypter(cfg.MaxPayload + seqSize),
		dec:      seal.NewDecrypter(),
		maxFrame: cfg.MaxPayload + seqSize + seal.SymmetricOverhead,
		done:     make(chan struct{}),
	}
}

// Connect dials addr over TCP and runs the handshake as the client.
func (s *Session) Connect(ctx context.Context, addr string) error {
	if err := s.begin(); err != nil {
		return err
	}
	ctx, cancel := s.bind(ctx)
	defer cancel()

	if err := s.prepareKey(ctx); err != nil {
		return s.abort(err)
	}
	defer s.releaseLocal()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.abort(cancelled(ctxErr))
		}
		return s.abort(fmt.Errorf("%w: dial %s: %w", cserrors.ErrIO, addr, err))
	}
	s.cfg.Logger.Debugf("session: connected to %s", conn.RemoteAddr())
	return s.establish(ctx, conn, handshake.RoleClient)
}

// Accept waits for one connection on ln and runs the handshake as the server.
func (s *Session) Accept(ctx context.Context, ln net.Listener) error {
	if err := s.begin(); err != nil {
		return err
	}
	ctx, cancel := s.bind(ctx)
	defer cancel()

	if err := s.prepareKey(ctx); err != nil {
		return s.abort(err)
	}
	defer s.releaseLocal()

	conn, err := acceptContext(ctx, ln)
	if err != nil {
		return s.abort(err)
	}
	s.cfg.Logger.Debugf("session: accepted %s", conn.RemoteAddr())
	return s.establish(ctx, conn, handshake.RoleServer)
}

// Attach runs the handshake over an already connected conn. The session
// takes ownership of conn and closes it on failure.
func (s *Session) Attach(ctx context.Context, conn net.Conn, role handshake.Role) error {
	if err := s.begin(); err != nil {
		_ = conn.Close()
		return err
	}
	ctx, cancel := s.bind(ctx)
	defer cancel()

	if err := s.prepareKey(ctx); err != nil {
		_ = conn.Close()
		return s.abort(err)
	}
	defer s.releaseLocal()

	return s.establish(ctx, conn, role)
}

// Send seals p and writes it as one frame.
func (s *Session) Send(p []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	conn, err := s.ready()
	if err != nil {
		s.dropKey(&s.sendKey)
		return err
	}
	if len(p) > s.cfg.MaxPayload {
		return fmt.Errorf("%w: %d bytes, limit %d", cserrors.ErrPayloadTooLarge, len(p), s.cfg.MaxPayload)
	}

	pt := make([]byte, seqSize+len(p))
	binary.BigEndian.PutUint64(pt, s.sendSeq)
	copy(pt[seqSize:], p)
	block, err := s.enc.Encrypt(pt, s.sendKey)
	crypto.Wipe(pt)
	if err != nil {
		return s.fail(err, &s.sendKey)
	}

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if err := wire.WriteFrame(conn, block.Bytes()); err != nil {
		return s.fail(err, &s.sendKey)
	}
	s.sendSeq++
	return nil
}

// Receive blocks for the next frame and returns its payload. It returns
// errors.ErrClosed once the peer has closed the connection cleanly.
func (s *Session) Receive() ([]byte, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	conn, err := s.ready()
	if err != nil {
		s.dropKey(&s.recvKey)
		return nil, err
	}

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	raw, err := wire.ReadFrame(conn, s.maxFrame)
	if err == io.EOF {
		return nil, s.remoteClosed()
	}
	if err != nil {
		return nil, s.fail(err, &s.recvKey)
	}

	block, err := seal.ParseCipherBlock(seal.ModeSymmetric, raw)
	if err != nil {
		return nil, s.fail(err, &s.recvKey)
	}
	pt, err := s.dec.Decrypt(block, s.recvKey)
	if err != nil {
		return nil, s.fail(err, &s.recvKey)
	}
	if len(pt) < seqSize {
		return nil, s.fail(fmt.Errorf("%w: frame shorter than sequence header", cserrors.ErrFrame), &s.recvKey)
	}
	if seq := binary.BigEndian.Uint64(pt); seq != s.recvSeq {
		return nil, s.fail(fmt.Errorf("%w: got %d, want %d", cserrors.ErrSequence, seq, s.recvSeq), &s.recvKey)
	}
	s.recvSeq++
	return pt[seqSize:], nil
}

// Close tears the session down. It is idempotent and safe to call from any
// goroutine; blocked Send and Receive calls return errors.ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	faulted := s.state == StateFaulted
	if !faulted {
		s.state = StateClosing
	}
	conn := s.conn
	close(s.done)
	s.mu.Unlock()

	var err error
	if conn != nil {
		if err = conn.Close(); errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}

	s.sendMu.Lock()
	s.dropKey(&s.sendKey)
	s.sendMu.Unlock()
	s.recvMu.Lock()
	s.dropKey(&s.recvKey)
	s.recvMu.Unlock()

	s.mu.Lock()
	if !faulted {
		s.state = StateClosed
	}
	s.mu.Unlock()
	s.cfg.Logger.Debugf("session: closed")
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that faulted the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faultErr
}

// PeerPublicKey returns the key the peer presented, or nil before the
// handshake completes.
func (s *Session) PeerPublicKey() *crypto.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// LocalPublicKey returns the public half of the key this side used.
func (s *Session) LocalPublicKey() *crypto.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localPub
}

// RemoteAddr returns the peer address, or nil before a connection exists.
func (s *Session) RemoteAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

// LocalAddr returns the local address, or nil before a connection exists.
func (s *Session) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closing:
		return cserrors.ErrClosed
	case s.state != StateDisconnected:
		return fmt.Errorf("session already %s", s.state)
	}
	s.state = StateConnecting
	return nil
}

// bind derives a context that is also cancelled by Close.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (s *Session) prepareKey(ctx context.Context) error {
	if kp := s.cfg.KeyPair; kp != nil {
		if err := kp.Validate(); err != nil {
			return err
		}
		s.local = kp
	} else {
		s.cfg.Logger.Debugf("session: generating %d-bit key pair", s.cfg.KeyBits)
		kp, err := crypto.GenerateKeyPair(ctx, s.cfg.KeyBits)
		if err != nil {
			return err
		}
		s.local, s.ownsLocal = kp, true
	}

	s.mu.Lock()
	s.localPub = s.local.Public()
	s.mu.Unlock()
	return nil
}

// releaseLocal wipes a generated key pair once the handshake no longer needs it.
func (s *Session) releaseLocal() {
	if s.ownsLocal {
		s.local.Wipe()
	}
	s.local = nil
}

func (s *Session) establish(ctx context.Context, conn net.Conn, role handshake.Role) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return cserrors.ErrClosed
	}
	s.conn = conn
	s.state = StateKeyExchange
	s.mu.Unlock()

	deadline := time.Now().Add(s.cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(aLongTimeAgo) })

	res, err := handshake.Run(conn, role, s.local)
	interrupted := !stop()
	if err != nil {
		switch {
		case interrupted && errors.Is(ctx.Err(), context.Canceled):
			err = cancelled(ctx.Err())
		case interrupted || isTimeout(err):
			err = fmt.Errorf("%w: %v", cserrors.ErrHandshakeTimeout, err)
		}
		return s.abort(err)
	}
	_ = conn.SetDeadline(time.Time{})

	s.sendMu.Lock()
	s.sendKey = res.Send
	s.sendMu.Unlock()
	s.recvMu.Lock()
	s.recvKey = res.Recv
	s.recvMu.Unlock()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		res.Wipe()
		return cserrors.ErrClosed
	}
	s.peer = res.Peer
	s.state = StateEstablished
	s.mu.Unlock()

	s.cfg.Logger.Infof("session: established as %s with %s (peer %s)",
		role, conn.RemoteAddr(), crypto.Fingerprint(res.Peer))
	return nil
}

// ready returns the connection if the session is Established.
func (s *Session) ready() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateEstablished:
		return s.conn, nil
	case StateFaulted:
		return nil, fmt.Errorf("%w: %w", cserrors.ErrFaulted, s.faultErr)
	case StateClosing, StateClosed:
		return nil, cserrors.ErrClosed
	default:
		return nil, cserrors.ErrNotEstablished
	}
}

// abort faults a session that never reached Established.
func (s *Session) abort(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return cserrors.ErrClosed
	}
	s.state = StateFaulted
	s.faultErr = err
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.cfg.Logger.Debugf("session: setup failed: %v", err)
	return err
}

// fail faults an established session. The caller holds the mutex guarding key.
func (s *Session) fail(err error, key **crypto.SessionKey) error {
	s.dropKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closing || s.state == StateClosed:
		return cserrors.ErrClosed
	case s.state == StateFaulted:
		return fmt.Errorf("%w: %w", cserrors.ErrFaulted, s.faultErr)
	}
	if isTimeout(err) {
		err = fmt.Errorf("%w: %v", cserrors.ErrTimeout, err)
	}
	s.state = StateFaulted
	s.faultErr = err
	_ = s.conn.Close()
	s.cfg.Logger.Debugf("session: faulted: %v", err)
	return err
}

// remoteClosed handles a clean EOF from the peer. The caller holds recvMu.
func (s *Session) remoteClosed() error {
	s.dropKey(&s.recvKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEstablished {
		s.state = StateClosed
		_ = s.conn.Close()
		s.cfg.Logger.Debugf("session: peer closed")
	}
	if s.state == StateFaulted {
		return fmt.Errorf("%w: %w", cserrors.ErrFaulted, s.faultErr)
	}
	return cserrors.ErrClosed
}

func (s *Session) dropKey(key **crypto.SessionKey) {
	if *key != nil {
		(*key).Wipe()
		*key = nil
	}
}

func acceptContext(ctx context.Context, ln net.Listener) (net.Conn, error) {
	type deadliner interface{ SetDeadline(time.Time) error }

	if dl, ok := ln.(deadliner); ok {
		stop := context.AfterFunc(ctx, func() { _ = dl.SetDeadline(aLongTimeAgo) })
		conn, err := ln.Accept()
		if !stop() {
			_ = dl.SetDeadline(time.Time{})
			if conn != nil {
				_ = conn.Close()
			}
			return nil, cancelled(ctx.Err())
		}
		if err != nil {
			return nil, fmt.Errorf("%w: accept: %w", cserrors.ErrIO, err)
		}
		return conn, nil
	}

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- accepted{conn, err}
	}()
	select {
	case a := <-ch:
		if a.err != nil {
			return nil, fmt.Errorf("%w: accept: %w", cserrors.ErrIO, a.err)
		}
		return a.conn, nil
	case <-ctx.Done():
		go func() {
			if a := <-ch; a.conn != nil {
				_ = a.conn.Close()
			}
		}()
		return nil, cancelled(ctx.Err())
	}
}

func cancelled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", cserrors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", cserrors.ErrCancelled, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
