package app

import (
	"cryptosocket/internal/logging"
)

// App is what commands see: the loaded config, a logger and the services.
type App struct {
	Config Config
	Log    logging.Logger
	*Wire
}

// New loads configuration from home and wires the services.
func New(home, configPath string, log logging.Logger) (*App, error) {
	cfg, err := LoadConfig(home, configPath)
	if err != nil {
		return nil, err
	}
	w, err := NewWire(cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: log, Wire: w}, nil
}
