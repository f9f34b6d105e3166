package session_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/handshake"
	"cryptosocket/internal/protocol/seal"
	"cryptosocket/internal/protocol/wire"
	"cryptosocket/internal/session"
)

var (
	keyOnce sync.Once
	testKey *crypto.KeyPair
	keyErr  error
)

// serverKey returns a 1024-bit key pair shared by tests that drive the
// server side by hand.
func serverKey(t *testing.T) *crypto.KeyPair {
	t.Helper()
	keyOnce.Do(func() {
		testKey, keyErr = crypto.GenerateKeyPair(context.Background(), crypto.MinKeyBits)
	})
	if keyErr != nil {
		t.Fatalf("GenerateKeyPair: %v", keyErr)
	}
	return testKey
}

func testConfig() session.Config {
	return session.Config{
		KeyBits:          crypto.MinKeyBits,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

// connectPair returns an established client and server over loopback.
func connectPair(t *testing.T, clientCfg, serverCfg session.Config) (*session.Session, *session.Session) {
	t.Helper()
	ln := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := session.New(serverCfg)
	accepted := make(chan error, 1)
	go func() { accepted <- server.Accept(ctx, ln) }()

	client := session.New(clientCfg)
	if err := client.Connect(ctx, ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-accepted; err != nil {
		t.Fatalf("Accept: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

// rawServer accepts one connection and completes the handshake by hand,
// handing the caller the connection and the directional keys.
func rawServer(t *testing.T, ln net.Listener) <-chan rawPeer {
	t.Helper()
	kp := serverKey(t)
	out := make(chan rawPeer, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			out <- rawPeer{err: err}
			return
		}
		res, err := handshake.Run(conn, handshake.RoleServer, kp)
		out <- rawPeer{conn: conn, res: res, err: err}
	}()
	return out
}

type rawPeer struct {
	conn net.Conn
	res  *handshake.Result
	err  error
}

func sealFrame(t *testing.T, key *crypto.SessionKey, seq uint64, payload []byte) []byte {
	t.Helper()
	pt := binary.BigEndian.AppendUint64(nil, seq)
	pt = append(pt, payload...)
	block, err := seal.Symmetric{}.Encrypt(pt, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return block.Bytes()
}

func TestSession_PingPong(t *testing.T) {
	client, server := connectPair(t, testConfig(), testConfig())

	if client.State() != session.StateEstablished || server.State() != session.StateEstablished {
		t.Fatalf("want established, got client=%s server=%s", client.State(), server.State())
	}
	if !client.PeerPublicKey().Equal(server.LocalPublicKey()) {
		t.Fatal("client learned the wrong server key")
	}

	if err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("client Send: %v", err)
	}
	got, err := server.Receive()
	if err != nil {
		t.Fatalf("server Receive: %v", err)
	}
	if string(got) != "ping" {
		t.Fatalf("want ping, got %q", got)
	}

	if err := server.Send([]byte("pong")); err != nil {
		t.Fatalf("server Send: %v", err)
	}
	got, err = client.Receive()
	if err != nil {
		t.Fatalf("client Receive: %v", err)
	}
	if string(got) != "pong" {
		t.Fatalf("want pong, got %q", got)
	}
}

func TestSession_EmptyAndLargePayloads(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPayload = 256 << 10
	client, server := connectPair(t, cfg, cfg)

	for _, msg := range [][]byte{{}, bytes.Repeat([]byte("z"), cfg.MaxPayload)} {
		errc := make(chan error, 1)
		go func() { errc <- client.Send(msg) }()
		got, err := server.Receive()
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if err := <-errc; err != nil {
			t.Fatalf("Send: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("want %d bytes, got %d", len(msg), len(got))
		}
	}
}

func TestSession_PayloadTooLargeDoesNotFault(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPayload = 16
	client, server := connectPair(t, cfg, cfg)

	if err := client.Send(make([]byte, 17)); !errors.Is(err, cserrors.ErrPayloadTooLarge) {
		t.Fatalf("want ErrPayloadTooLarge, got %v", err)
	}
	if client.State() != session.StateEstablished {
		t.Fatalf("want established after oversize send, got %s", client.State())
	}
	if err := client.Send(make([]byte, 16)); err != nil {
		t.Fatalf("Send at limit: %v", err)
	}
	if got, err := server.Receive(); err != nil || len(got) != 16 {
		t.Fatalf("Receive: %d bytes, %v", len(got), err)
	}
}

func TestSession_ConcurrentSendsStayFramed(t *testing.T) {
	client, server := connectPair(t, testConfig(), testConfig())
	const senders, each = 4, 25

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < each; j++ {
				if err := client.Send([]byte(fmt.Sprintf("%d-%d", i, j))); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}(i)
	}

	seen := make(map[string]bool)
	for n := 0; n < senders*each; n++ {
		got, err := server.Receive()
		if err != nil {
			t.Fatalf("Receive %d: %v", n, err)
		}
		if seen[string(got)] {
			t.Fatalf("duplicate message %q", got)
		}
		seen[string(got)] = true
	}
	wg.Wait()
}

func TestSession_CloseUnblocksReceive(t *testing.T) {
	client, _ := connectPair(t, testConfig(), testConfig())

	errc := make(chan error, 1)
	go func() {
		_, err := client.Receive()
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, cserrors.ErrClosed) {
			t.Fatalf("want ErrClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive still blocked after Close")
	}

	if client.State() != session.StateClosed {
		t.Fatalf("want closed, got %s", client.State())
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := client.Send([]byte("late")); !errors.Is(err, cserrors.ErrClosed) {
		t.Fatalf("want ErrClosed from Send after Close, got %v", err)
	}
}

func TestSession_PeerCloseIsClean(t *testing.T) {
	client, server := connectPair(t, testConfig(), testConfig())

	if err := server.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := client.Receive(); !errors.Is(err, cserrors.ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
	if client.State() != session.StateClosed {
		t.Fatalf("want closed, got %s", client.State())
	}
}

func TestSession_ServerClosesMidHandshake(t *testing.T) {
	ln := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = wire.ReadFrame(conn, 1<<16)
		_ = conn.Close()
	}()

	cfg := testConfig()
	cfg.HandshakeTimeout = 2 * time.Second
	client := session.New(cfg)
	defer client.Close()

	start := time.Now()
	err := client.Connect(context.Background(), ln.Addr().String())
	if !errors.Is(err, cserrors.ErrKeyExchange) && !errors.Is(err, cserrors.ErrHandshakeTimeout) {
		t.Fatalf("want ErrKeyExchange or ErrHandshakeTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("Connect did not return promptly")
	}
	if client.State() != session.StateFaulted {
		t.Fatalf("want faulted, got %s", client.State())
	}
}

func TestSession_HandshakeTimeout(t *testing.T) {
	ln := listen(t)
	hold := make(chan struct{})
	defer close(hold)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-hold
		_ = conn.Close()
	}()

	cfg := testConfig()
	cfg.HandshakeTimeout = 200 * time.Millisecond
	client := session.New(cfg)
	defer client.Close()

	err := client.Connect(context.Background(), ln.Addr().String())
	if !errors.Is(err, cserrors.ErrHandshakeTimeout) {
		t.Fatalf("want ErrHandshakeTimeout, got %v", err)
	}
}

func TestSession_ConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := session.New(testConfig())
	defer client.Close()
	if err := client.Connect(ctx, "127.0.0.1:1"); !errors.Is(err, cserrors.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
}

func TestSession_AcceptCancelled(t *testing.T) {
	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	server := session.New(session.Config{KeyPair: serverKey(t)})
	defer server.Close()
	if err := server.Accept(ctx, ln); !errors.Is(err, cserrors.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
}

func TestSession_CorruptFrameFaults(t *testing.T) {
	ln := listen(t)
	peers := rawServer(t, ln)

	client := session.New(testConfig())
	defer client.Close()
	if err := client.Connect(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := <-peers
	if p.err != nil {
		t.Fatalf("server handshake: %v", p.err)
	}
	defer p.conn.Close()

	frame := sealFrame(t, p.res.Send, 0, []byte("tampered"))
	frame[len(frame)-1] ^= 1
	if err := wire.WriteFrame(p.conn, frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if _, err := client.Receive(); err != cserrors.ErrPaddingValidation {
		t.Fatalf("want ErrPaddingValidation, got %v", err)
	}
	if client.State() != session.StateFaulted {
		t.Fatalf("want faulted, got %s", client.State())
	}
	if err := client.Send([]byte("after")); !errors.Is(err, cserrors.ErrFaulted) {
		t.Fatalf("want ErrFaulted, got %v", err)
	}
}

func TestSession_ReplayedFrameFaults(t *testing.T) {
	ln := listen(t)
	peers := rawServer(t, ln)

	client := session.New(testConfig())
	defer client.Close()
	if err := client.Connect(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := <-peers
	if p.err != nil {
		t.Fatalf("server handshake: %v", p.err)
	}
	defer p.conn.Close()

	frame := sealFrame(t, p.res.Send, 0, []byte("once"))
	for i := 0; i < 2; i++ {
		if err := wire.WriteFrame(p.conn, frame); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	if got, err := client.Receive(); err != nil || string(got) != "once" {
		t.Fatalf("first Receive: %q, %v", got, err)
	}
	if _, err := client.Receive(); !errors.Is(err, cserrors.ErrSequence) {
		t.Fatalf("want ErrSequence, got %v", err)
	}
}

func TestSession_OversizedFrameFaults(t *testing.T) {
	ln := listen(t)
	peers := rawServer(t, ln)

	cfg := testConfig()
	cfg.MaxPayload = 32
	client := session.New(cfg)
	defer client.Close()
	if err := client.Connect(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := <-peers
	if p.err != nil {
		t.Fatalf("server handshake: %v", p.err)
	}
	defer p.conn.Close()

	if err := wire.WriteFrame(p.conn, sealFrame(t, p.res.Send, 0, make([]byte, 64))); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := client.Receive(); !errors.Is(err, cserrors.ErrFrame) {
		t.Fatalf("want ErrFrame, got %v", err)
	}
}

func TestSession_TruncatedFrameIsFrameError(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"partial prefix", []byte{0, 0}},
		{"prefix without body", []byte{0, 0, 0, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln := listen(t)
			peers := rawServer(t, ln)

			client := session.New(testConfig())
			defer client.Close()
			if err := client.Connect(context.Background(), ln.Addr().String()); err != nil {
				t.Fatalf("Connect: %v", err)
			}
			p := <-peers
			if p.err != nil {
				t.Fatalf("server handshake: %v", p.err)
			}
			if _, err := p.conn.Write(tt.raw); err != nil {
				t.Fatalf("Write: %v", err)
			}
			_ = p.conn.Close()

			if _, err := client.Receive(); !errors.Is(err, cserrors.ErrFrame) {
				t.Fatalf("want ErrFrame, got %v", err)
			}
			if client.State() != session.StateFaulted {
				t.Fatalf("want faulted, got %s", client.State())
			}
		})
	}
}

func TestSession_BorrowedKeyPairIsNotWiped(t *testing.T) {
	kp := serverKey(t)
	cfg := testConfig()
	cfg.KeyPair = kp

	client, _ := connectPair(t, testConfig(), cfg)
	_ = client.Close()

	if kp.Wiped() {
		t.Fatal("session wiped a borrowed key pair")
	}
}

func TestSession_SharedKeyPairAcrossConcurrentSessions(t *testing.T) {
	kp := serverKey(t)
	want := kp.Public()
	serverCfg := testConfig()
	serverCfg.KeyPair = kp

	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				errs <- err
				return
			}
			defer ln.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			server := session.New(serverCfg)
			defer server.Close()
			accepted := make(chan error, 1)
			go func() { accepted <- server.Accept(ctx, ln) }()

			client := session.New(testConfig())
			defer client.Close()
			if err := client.Connect(ctx, ln.Addr().String()); err != nil {
				errs <- fmt.Errorf("Connect: %w", err)
				return
			}
			if err := <-accepted; err != nil {
				errs <- fmt.Errorf("Accept: %w", err)
				return
			}
			if !client.PeerPublicKey().Equal(want) {
				errs <- errors.New("client saw a different server key")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if kp.Wiped() {
		t.Fatal("shared key pair was wiped")
	}
	if err := kp.Validate(); err != nil {
		t.Fatalf("shared key pair changed: %v", err)
	}
}

func TestSession_SendBeforeConnect(t *testing.T) {
	s := session.New(testConfig())
	if err := s.Send([]byte("x")); !errors.Is(err, cserrors.ErrNotEstablished) {
		t.Fatalf("want ErrNotEstablished, got %v", err)
	}
	if s.State() != session.StateDisconnected {
		t.Fatalf("want disconnected, got %s", s.State())
	}
}

func TestSession_AttachOverPipe(t *testing.T) {
	c, s := net.Pipe()
	client := session.New(testConfig())
	server := session.New(session.Config{KeyPair: serverKey(t)})
	defer client.Close()
	defer server.Close()

	ctx := context.Background()
	errc := make(chan error, 1)
	go func() { errc <- server.Attach(ctx, s, handshake.RoleServer) }()
	if err := client.Attach(ctx, c, handshake.RoleClient); err != nil {
		t.Fatalf("client Attach: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("server Attach: %v", err)
	}

	go func() { errc <- client.Send([]byte("over a pipe")) }()
	got, err := server.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(got) != "over a pipe" {
		t.Fatalf("got %q", got)
	}
}
