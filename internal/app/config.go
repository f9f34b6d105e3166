package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/protocol/seal"
	"cryptosocket/internal/session"
)

const (
	ConfigFilename = "config.toml"
	DefaultListen  = ":7700"
	DefaultName    = "cryptosocketd"
	configFileMode = 0o600
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses strings such as "10s" or "1m30s".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// KeysConfig controls which key pair a session uses.
type KeysConfig struct {
	Bits int `toml:"bits"`
	// Reuse uses the stored identity instead of a fresh pair per session.
	Reuse bool `toml:"reuse"`
	// Pin records server fingerprints and refuses changed keys.
	Pin bool `toml:"pin"`
}

// SessionConfig holds per-session limits.
type SessionConfig struct {
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	ReadTimeout      Duration `toml:"read_timeout"`
	WriteTimeout     Duration `toml:"write_timeout"`
	MaxPayload       int      `toml:"max_payload"`
}

// ServerConfig configures the daemon.
type ServerConfig struct {
	Listen      string `toml:"listen"`
	Advertise   bool   `toml:"advertise"`
	Name        string `toml:"name"`
	MaxSessions int    `toml:"max_sessions"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Home string `toml:"-"` // config directory, e.g. $HOME/.cryptosocket

	Keys    KeysConfig    `toml:"keys"`
	Session SessionConfig `toml:"session"`
	Server  ServerConfig  `toml:"server"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(home string) Config {
	return Config{
		Home: home,
		Keys: KeysConfig{Bits: crypto.DefaultKeyBits},
		Session: SessionConfig{
			HandshakeTimeout: Duration{session.DefaultHandshakeTimeout},
			WriteTimeout:     Duration{session.DefaultWriteTimeout},
			MaxPayload:       seal.DefaultMaxPayload,
		},
		Server: ServerConfig{
			Listen: DefaultListen,
			Name:   DefaultName,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(home, path string) (Config, error) {
	cfg := DefaultConfig(home)
	if path == "" {
		path = filepath.Join(home, ConfigFilename)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", cserrors.ErrInvalidConfig, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", cserrors.ErrInvalidConfig, undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as TOML to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, configFileMode)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	bits := c.Keys.Bits
	if bits < crypto.MinKeyBits || bits > crypto.MaxKeyBits || bits%2 != 0 {
		return fmt.Errorf("%w: keys.bits %d outside [%d, %d]",
			cserrors.ErrInvalidConfig, bits, crypto.MinKeyBits, crypto.MaxKeyBits)
	}
	if c.Session.HandshakeTimeout.Duration <= 0 {
		return fmt.Errorf("%w: session.handshake_timeout must be positive", cserrors.ErrInvalidConfig)
	}
	if c.Session.ReadTimeout.Duration < 0 || c.Session.WriteTimeout.Duration < 0 {
		return fmt.Errorf("%w: session timeouts must not be negative", cserrors.ErrInvalidConfig)
	}
	if c.Session.MaxPayload <= 0 {
		return fmt.Errorf("%w: session.max_payload must be positive", cserrors.ErrInvalidConfig)
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server.listen is empty", cserrors.ErrInvalidConfig)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("%w: server.max_sessions must not be negative", cserrors.ErrInvalidConfig)
	}
	return nil
}

// SessionOptions converts the file settings into a session.Config.
func (c Config) SessionOptions(log session.Logger) session.Config {
	return session.Config{
		KeyBits:          c.Keys.Bits,
		HandshakeTimeout: c.Session.HandshakeTimeout.Duration,
		ReadTimeout:      c.Session.ReadTimeout.Duration,
		WriteTimeout:     c.Session.WriteTimeout.Duration,
		MaxPayload:       c.Session.MaxPayload,
		Logger:           log,
	}
}
