package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/directory"
	"github.com/kamalraji/plan-it-together-sub013/internal/e2ee"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"

	"github.com/spf13/cobra"
)

var (
	safetyPeer    string
	safetyPeerKey string
)

var safetyNumberCmd = &cobra.Command{
	Use:   "safety-number",
	Short: "Show the safety number shared with a contact",
	Long: `Derives the sixty-digit safety number from your public key and the
contact's. Both sides compute the same number; compare it over a trusted
channel (in person, a call) to rule out key substitution.

The contact's key comes from the directory with --peer, or from a pasted
base64 key with --peer-key when verifying fully out of band.

The number changes whenever either side rotates keys.

Examples:
  planit-e2ee safety-number --peer usr_456
  planit-e2ee safety-number --peer-key BGZ3...qw==`,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := "Fetching contact key..."
		if safetyPeerKey != "" {
			message = "Deriving safety number..."
		}
		spinner, cleanup := startSpinner(message)
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		pair, ok := core.Keys.Current()
		if !ok {
			spinner.FinalMSG = cliui.Error.Sprint("✗") + " No key pair on this device\n" +
				cliui.Info.Sprint("→") + " Run " + cliui.Code.Sprint("planit-e2ee keys init --user <id>") + " first"
			return nil
		}
		defer pair.Wipe()

		var remote []byte
		label := safetyPeer
		if safetyPeerKey != "" {
			remote, err = keys.DecodePublic(safetyPeerKey)
			if err != nil {
				spinner.FinalMSG = cliui.Error.Sprint("✗") + " The pasted key is not a valid public key"
				return nil
			}
			if label, err = keys.BuildKeyID(remote); err != nil {
				return fmt.Errorf("fingerprint pasted key: %w", err)
			}
		} else {
			bundle, err := core.Directory.ActiveBundle(cmd.Context(), safetyPeer)
			if err != nil {
				if errors.Is(err, directory.ErrRecipientKeyNotFound) {
					spinner.FinalMSG = cliui.Error.Sprint("✗") + " " + cliui.Highlight.Sprint(safetyPeer) + " has no published key"
					return nil
				}
				return fmt.Errorf("fetch contact key: %w", err)
			}
			remote = bundle.PublicKey
		}

		number, err := e2ee.GenerateSafetyNumber(pair.Public, remote)
		if err != nil {
			return fmt.Errorf("derive safety number: %w", err)
		}

		block := "  " + strings.ReplaceAll(e2ee.FormatSafetyNumber(number), "\n", "\n  ")
		spinner.FinalMSG = cliui.Success.Sprint("✓") + " Safety number with " + cliui.Highlight.Sprint(label) + "\n\n" +
			block + "\n\n" +
			cliui.Info.Sprint("→") + " Compare all sixty digits over a channel you trust"
		return nil
	},
}

func init() {
	safetyNumberCmd.Flags().StringVar(&safetyPeer, "peer", "", "contact's user ID")
	safetyNumberCmd.Flags().StringVar(&safetyPeerKey, "peer-key", "", "contact's public key as base64, skipping the directory")
	safetyNumberCmd.MarkFlagsOneRequired("peer", "peer-key")
	safetyNumberCmd.MarkFlagsMutuallyExclusive("peer", "peer-key")
}
