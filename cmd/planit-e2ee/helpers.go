package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/config"

	"github.com/briandowns/spinner"
)

// buildCore assembles the subsystem from the effective config. Flags win
// over the config file so one machine can drive several data directories.
func buildCore() (*app.Core, error) {
	cfg := config.LoadFromPath(configPath)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return app.New(cfg)
}

// startSpinner shows progress while a command talks to the key directory.
// Returns the spinner and a cleanup to defer; set FinalMSG before returning
// and cleanup prints it once the spinner line is cleared. In verbose mode
// the spinner stays off so log lines remain readable.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")

	if !verbose {
		s.Start()
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = cliui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}
		if !verbose {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}
	return s, cleanup
}

// confirm pauses the spinner and asks the user to approve an irreversible
// step. Anything other than y/yes counts as no.
func confirm(s *spinner.Spinner, question string) bool {
	if s != nil {
		s.Stop()
	}

	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))

	if s != nil && !verbose {
		s.Restart()
	}
	return response == "y" || response == "yes"
}

// passphraseMissingMsg is the shared final message for commands that cannot
// run without an unlocked keystore.
func passphraseMissingMsg() string {
	return cliui.Error.Sprint("✗") + " No keystore passphrase set\n" +
		cliui.Info.Sprint("→") + " Export it first: " + cliui.Code.Sprint("export PLANIT_PASSPHRASE=<your passphrase>")
}
