package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptosocket/internal/domain"
	"cryptosocket/internal/session"
)

// send <addr> [message...]: open a session, send each message and print the reply.
// Without message arguments, lines are read from stdin.
func sendCmd() *cobra.Command {
	var (
		timeout time.Duration
		noReply bool
	)
	cmd := &cobra.Command{
		Use:   "send <addr> [message...]",
		Short: "Open an encrypted session to a server and exchange messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := domain.Address(args[0])

			var pass string
			if appCtx.Config.Keys.Reuse {
				p, err := readPassphrase("Passphrase: ")
				if err != nil {
					return err
				}
				pass = p
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			done := startSpinner(fmt.Sprintf("Connecting to %s...", addr))
			sess, err := appCtx.Sessions.Dial(ctx, addr, pass)
			if err != nil {
				done("")
				return err
			}
			defer sess.Close()
			done("")
			log.Infof("session established with %s", sess.RemoteAddr())

			exchange := func(msg string) error {
				if err := sess.Send([]byte(msg)); err != nil {
					return err
				}
				if noReply {
					return nil
				}
				reply, err := sess.Receive()
				if err != nil {
					return err
				}
				fmt.Println(string(reply))
				return nil
			}

			if len(args) > 1 {
				return exchange(strings.Join(args[1:], " "))
			}
			return sendLines(sess, exchange)
		},
	}
	cmd.Flags().DurationVar(&timeout, "connect-timeout", 30*time.Second, "time allowed for connect and handshake")
	cmd.Flags().BoolVar(&noReply, "no-reply", false, "do not wait for a reply to each message")
	return cmd
}

func sendLines(sess *session.Session, exchange func(string) error) error {
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if err := exchange(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	log.Debugf("stdin closed, ending session in state %s", sess.State())
	return nil
}
