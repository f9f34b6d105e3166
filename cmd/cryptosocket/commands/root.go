package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cryptosocket/internal/app"
	"cryptosocket/internal/logging"
)

var (
	home       string
	configPath string
	passphrase string
	verbose    bool
	debug      bool

	appCtx *app.App
	log    logging.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "cryptosocket",
		Short:         "Encrypted socket client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logging.Logger{Verbose: verbose, Debug: debug}

			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".cryptosocket")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			a, err := app.New(home, configPath, log)
			if err != nil {
				return err
			}
			appCtx = a
			log.Debugf("home %s, key size %d, reuse %v, pin %v",
				home, a.Config.Keys.Bits, a.Config.Keys.Reuse, a.Config.Keys.Pin)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.cryptosocket)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.toml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity (prompted if omitted)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show info messages")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "show debug messages")

	root.AddCommand(keygenCmd(), fingerprintCmd(), sendCmd(), peersCmd(), discoverCmd())

	err := root.Execute()
	if err != nil {
		log.Errorf("%v", err)
	}
	return err
}
