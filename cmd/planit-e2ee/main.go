package main

import (
	"fmt"
	"os"

	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "planit-e2ee",
	Short: "Manage Plan-It-Together end-to-end encryption from the command line",
	Long: `planit-e2ee operates the client-side encryption subsystem: key pairs,
recovery phrases, safety numbers, encrypted files, and history backups.

All secret material stays inside the local data directory, sealed under the
keystore passphrase. The passphrase is only ever read from the
PLANIT_PASSPHRASE environment variable.

Common flows:
  # First run: provision a key pair and publish the public half
  planit-e2ee keys init --user usr_123

  # Write down the recovery phrase somewhere safe
  planit-e2ee recovery export

  # Verify a contact out of band
  planit-e2ee safety-number --peer usr_456

Run 'planit-e2ee help <command>' for details on a specific command.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to planit.yaml (default: ./configs/planit.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print log output instead of a spinner")

	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(recoveryCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(safetyNumberCmd)
	rootCmd.AddCommand(encryptFileCmd)
	rootCmd.AddCommand(decryptFileCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(recordsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cliui.Error.Sprint("✗")+" "+err.Error())
		os.Exit(1)
	}
}
