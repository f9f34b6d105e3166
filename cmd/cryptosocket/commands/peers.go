package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cryptosocket/internal/domain"
)

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Manage pinned server keys",
	}
	cmd.AddCommand(peersListCmd(), peersForgetCmd())
	return cmd
}

func peersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List servers and the key fingerprint pinned for each",
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := appCtx.Peers.ListPeers()
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Println("No known peers.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tFINGERPRINT\tFIRST SEEN\tLAST SEEN")
			for _, p := range peers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Address, p.Fingerprint,
					p.FirstSeen.Local().Format(time.DateTime), p.LastSeen.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func peersForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <addr>",
		Short: "Forget the key pinned for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Peers.ForgetPeer(domain.Address(args[0])); err != nil {
				return err
			}
			fmt.Printf("Forgot %s\n", args[0])
			return nil
		},
	}
}
