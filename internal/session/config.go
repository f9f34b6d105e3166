package session

import (
	"time"

	"cryptosocket/internal/crypto"
	"cryptosocket/internal/protocol/seal"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
)

// Logger receives lifecycle events. Payloads and key material are never
// passed to it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}

// Config controls a Session. The zero value is usable.
type Config struct {
	// KeyBits is the modulus size of a generated per-session key pair.
	KeyBits int
	// KeyPair, when set, is used instead of generating one. It is borrowed:
	// the session only reads it during the handshake and never wipes it, so
	// one pair may back many concurrent sessions (a server with a long-term
	// identity). Its owner wipes it after the last session is established.
	KeyPair *crypto.KeyPair

	HandshakeTimeout time.Duration
	// ReadTimeout bounds each Receive. Zero waits forever.
	ReadTimeout time.Duration
	// WriteTimeout bounds each Send. Zero waits forever.
	WriteTimeout time.Duration
	// MaxPayload is the largest payload Send accepts.
	MaxPayload int

	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.KeyBits == 0 {
		c.KeyBits = crypto.DefaultKeyBits
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.MaxPayload <= 0 {
		c.MaxPayload = seal.DefaultMaxPayload
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	return c
}
