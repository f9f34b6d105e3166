package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"cryptosocket/internal/app"
)

// readPassphrase returns the -p flag value or prompts for it on the terminal.
func readPassphrase(prompt string) (string, error) {
	return app.ReadPassphrase(passphrase, prompt)
}

// startSpinner shows message on stderr while a slow step runs. The spinner is
// skipped in verbose or debug mode so that it does not interleave with log lines.
// The returned func stops it and prints final.
func startSpinner(message string) func(final string) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		log.Debugf("spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
	} else {
		log.Infof("%s", message)
	}

	return func(final string) {
		if final != "" && !strings.HasSuffix(final, "\n") {
			final += "\n"
		}
		if quiet {
			s.FinalMSG = final
			s.Stop()
			return
		}
		fmt.Fprint(os.Stderr, final)
	}
}
