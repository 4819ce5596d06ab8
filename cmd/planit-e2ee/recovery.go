package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"

	"github.com/spf13/cobra"
)

var recoveryUser string

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Export or import the 24-word recovery phrase",
	Long: `The recovery phrase encodes the active private key as 24 words.
Anyone holding the phrase holds the key: store it offline, never in a
file that syncs or gets committed.`,
}

func init() {
	recoveryImportCmd.Flags().StringVar(&recoveryUser, "user", "", "user ID the recovered key belongs to")
	_ = recoveryImportCmd.MarkFlagRequired("user")

	recoveryCmd.AddCommand(recoveryExportCmd)
	recoveryCmd.AddCommand(recoveryImportCmd)
}

var recoveryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the recovery phrase for the active key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		phrase, err := core.Keys.ExportRecoveryPhrase()
		if err != nil {
			if errors.Is(err, keys.ErrLocalKeyNotFound) {
				fmt.Println(cliui.Error.Sprint("✗") + " No key pair on this device")
				fmt.Println(cliui.Info.Sprint("→") + " Run " + cliui.Code.Sprint("planit-e2ee keys init --user <id>") + " first")
				return nil
			}
			return fmt.Errorf("export recovery phrase: %w", err)
		}

		fmt.Println(cliui.Warning.Sprint("⚠") + " This phrase IS your private key. Write it down, then clear your terminal.")
		fmt.Println()
		fmt.Println("  " + phrase)
		return nil
	},
}

var recoveryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a key pair from a recovery phrase",
	Long: `Reads the 24-word phrase from standard input, rebuilds the key pair,
and publishes its public half so contacts reach this device again.

Examples:
  planit-e2ee recovery import --user usr_123 < phrase.txt
  planit-e2ee recovery import --user usr_123   (then paste the phrase)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Enter recovery phrase: ")
		reader := bufio.NewReader(os.Stdin)
		phrase, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read recovery phrase: %w", err)
		}
		phrase = strings.TrimSpace(phrase)

		spinner, cleanup := startSpinner("Restoring key pair...")
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		pair, err := core.Keys.ImportFromRecoveryPhrase(cmd.Context(), recoveryUser, phrase)
		if err != nil {
			if errors.Is(err, keys.ErrInvalidPhrase) {
				spinner.FinalMSG = cliui.Error.Sprint("✗") + " That is not a valid recovery phrase\n" +
					cliui.Info.Sprint("→") + " Expect 24 lowercase words separated by spaces"
				return nil
			}
			return fmt.Errorf("import recovery phrase: %w", err)
		}
		defer pair.Wipe()

		spinner.FinalMSG = cliui.Success.Sprint("✓") + " Key pair restored\n\n" +
			"  Key ID: " + cliui.Highlight.Sprint(pair.KeyID)
		return nil
	},
}
