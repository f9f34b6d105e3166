package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var (
		bits  int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the identity key pair and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bits == 0 {
				bits = appCtx.Config.Keys.Bits
			}
			pass, err := readPassphrase("New passphrase: ")
			if err != nil {
				return err
			}

			done := startSpinner(fmt.Sprintf("Generating %d-bit key pair...", bits))
			id, fp, err := appCtx.IDs.GenerateIdentity(cmd.Context(), pass, bits, force)
			if err != nil {
				done(color.RedString("✗") + " Key generation failed")
				return err
			}
			id.KeyPair.Wipe()
			done(color.GreenString("✓") + " Identity created")

			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "modulus size in bits (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
