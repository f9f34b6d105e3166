package server

import (
	"context"
	"errors"

	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/session"
)

// Handler serves one established session. The server closes the session
// after ServeSession returns.
type Handler interface {
	ServeSession(ctx context.Context, s *session.Session) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s *session.Session) error

func (f HandlerFunc) ServeSession(ctx context.Context, s *session.Session) error { return f(ctx, s) }

// Echo sends every received payload straight back until the peer closes.
func Echo() Handler {
	return HandlerFunc(func(ctx context.Context, s *session.Session) error {
		for {
			msg, err := s.Receive()
			if errors.Is(err, cserrors.ErrClosed) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := s.Send(msg); err != nil {
				return err
			}
		}
	})
}
