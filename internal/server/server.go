package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/handshake"
	"cryptosocket/internal/session"
)

// Logger is the subset of logging.Logger the server uses.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Config controls a Server.
type Config struct {
	// Session is the template for every accepted session.
	Session session.Config
	// MaxSessions bounds concurrent sessions; accepting pauses at the limit.
	// Zero means unlimited.
	MaxSessions int
	Logger      Logger
}

// Server runs a Handler for every connection accepted on a listener.
type Server struct {
	cfg      Config
	handler  Handler
	log      Logger
	registry *Registry
}

// New returns a Server that hands established sessions to h.
func New(cfg Config, h Handler) *Server {
	log := cfg.Logger
	if log == nil {
		log = nopLogger{}
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = log
	}
	return &Server{cfg: cfg, handler: h, log: log, registry: NewRegistry()}
}

// Registry exposes the live sessions.
func (srv *Server) Registry() *Registry { return srv.registry }

// ListenAndServe listens on addr and calls Serve. ready, if non-nil, receives
// the bound address once the listener is open.
func (srv *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", cserrors.ErrIO, addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}
	return srv.Serve(ctx, ln)
}

// Serve accepts connections until ctx ends or the listener fails. It returns
// nil after a shutdown triggered by ctx.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		srv.registry.CloseAll()
	})
	defer stop()

	var g errgroup.Group
	if srv.cfg.MaxSessions > 0 {
		g.SetLimit(srv.cfg.MaxSessions)
	}
	srv.log.Infof("listening on %s", ln.Addr())

	var acceptErr error
	backoff := 5 * time.Millisecond
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if temporaryAcceptError(err) {
				srv.log.Warnf("accept: %v; retrying in %v", err, backoff)
				time.Sleep(backoff)
				backoff = min(2*backoff, time.Second)
				continue
			}
			acceptErr = fmt.Errorf("%w: accept: %w", cserrors.ErrIO, err)
			break
		}
		backoff = 5 * time.Millisecond
		g.Go(func() error {
			srv.serveConn(ctx, conn)
			return nil
		})
	}

	srv.registry.CloseAll()
	_ = g.Wait()
	srv.log.Infof("stopped listening on %s", ln.Addr())
	return acceptErr
}

// temporaryAcceptError reports whether Accept may succeed if retried later:
// timeouts, descriptor exhaustion and connections aborted before accept.
func temporaryAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func (srv *Server) serveConn(ctx context.Context, conn net.Conn) {
	sess := session.New(srv.cfg.Session)
	id := srv.registry.Add(sess, conn.RemoteAddr())
	defer srv.registry.Remove(id)
	defer sess.Close()

	if ctx.Err() != nil {
		_ = conn.Close()
		return
	}
	if err := sess.Attach(ctx, conn, handshake.RoleServer); err != nil {
		srv.log.Warnf("[%s] handshake with %s failed: %v", id, conn.RemoteAddr(), err)
		return
	}
	e, _ := srv.registry.Get(id)
	srv.log.Infof("[%s] session from %s (peer %s)", id, conn.RemoteAddr(), e.PeerFingerprint())

	start := time.Now()
	err := srv.handler.ServeSession(ctx, sess)
	switch {
	case err == nil, errors.Is(err, cserrors.ErrClosed):
		srv.log.Infof("[%s] session ended after %v", id, time.Since(start).Round(time.Millisecond))
	default:
		srv.log.Warnf("[%s] session ended with error: %v", id, err)
	}
}
