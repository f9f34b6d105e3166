package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"cryptosocket/internal/app"
	"cryptosocket/internal/crypto"
	"cryptosocket/internal/discovery"
	"cryptosocket/internal/domain"
	"cryptosocket/internal/logging"
	"cryptosocket/internal/server"
)

const version = "1"

type options struct {
	home       string
	configPath string
	passphrase string
	listen     string
	name       string
	advertise  bool
	verbose    bool
	debug      bool
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("cryptosocketd", pflag.ExitOnError)
	fs.StringVar(&opts.home, "home", "", "config dir (default ~/.cryptosocket)")
	fs.StringVar(&opts.configPath, "config", "", "config file (default <home>/config.toml)")
	fs.StringVarP(&opts.passphrase, "passphrase", "p", "", "identity passphrase when keys.reuse is set")
	fs.StringVarP(&opts.listen, "listen", "l", "", "listen address (default from config)")
	fs.StringVar(&opts.name, "name", "", "mDNS instance name (default from config)")
	fs.BoolVar(&opts.advertise, "advertise", false, "advertise over mDNS")
	fs.BoolVarP(&opts.verbose, "verbose", "v", true, "show info messages")
	fs.BoolVar(&opts.debug, "debug", false, "show debug messages")
	_ = fs.Parse(os.Args[1:])

	log := logging.Logger{Verbose: opts.verbose, Debug: opts.debug}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs, opts, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *pflag.FlagSet, opts options, log logging.Logger) error {
	if opts.home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		opts.home = filepath.Join(dir, ".cryptosocket")
	}

	cfg, err := app.LoadConfig(opts.home, opts.configPath)
	if err != nil {
		return err
	}
	if fs.Changed("listen") {
		cfg.Server.Listen = opts.listen
	}
	if fs.Changed("name") {
		cfg.Server.Name = opts.name
	}
	if fs.Changed("advertise") {
		cfg.Server.Advertise = opts.advertise
	}

	w, err := app.NewWire(cfg, log)
	if err != nil {
		return err
	}

	var (
		kp *crypto.KeyPair
		fp domain.Fingerprint
	)
	if cfg.Keys.Reuse {
		pass, err := app.ReadPassphrase(opts.passphrase, "Passphrase: ")
		if err != nil {
			return err
		}
		id, err := w.IDs.LoadIdentity(pass)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}
		defer id.KeyPair.Wipe()
		kp, fp = id.KeyPair, id.Fingerprint()
		log.Infof("serving with identity %s", fp)
	}

	srv := app.NewServer(cfg, log, kp, server.Echo())

	var ad *discovery.Advertisement
	defer func() { ad.Shutdown() }()
	ready := func(addr net.Addr) {
		if !cfg.Server.Advertise {
			return
		}
		tcp, ok := addr.(*net.TCPAddr)
		if !ok {
			return
		}
		a, err := discovery.Advertise(cfg.Server.Name, tcp.Port, fp, version)
		if err != nil {
			log.Warnf("mDNS advertisement disabled: %v", err)
			return
		}
		ad = a
		log.Infof("advertising %q as %s", cfg.Server.Name, discovery.ServiceType)
	}

	err = srv.ListenAndServe(ctx, cfg.Server.Listen, ready)
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Infof("shutting down")
	}
	return err
}
