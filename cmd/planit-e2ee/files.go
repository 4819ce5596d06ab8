package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/directory"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/spf13/cobra"
)

var (
	fileFrom string
	fileTo   string
)

var encryptFileCmd = &cobra.Command{
	Use:   "encrypt-file <input> <output>",
	Short: "Encrypt a file for a recipient",
	Long: `Encrypts the file under a one-off key and wraps that key for the
recipient through the pairwise message path. The output is a JSON
envelope holding the sealed body and the wrapped key, suitable for any
untrusted channel or blob store.

Examples:
  planit-e2ee encrypt-file --from usr_123 --to usr_456 venue-map.pdf venue-map.pdf.enc`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath, outPath := args[0], args[1]
		data, err := os.ReadFile(inPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", inPath, err)
		}

		spinner, cleanup := startSpinner("Encrypting file...")
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		encrypted, err := core.Messenger.EncryptFile(cmd.Context(), fileFrom, fileTo, data)
		crypto.Wipe(data)
		if err != nil {
			if errors.Is(err, directory.ErrRecipientKeyNotFound) {
				spinner.FinalMSG = cliui.Error.Sprint("✗") + " " + cliui.Highlight.Sprint(fileTo) + " has no published key\n" +
					cliui.Info.Sprint("→") + " They need to run " + cliui.Code.Sprint("planit-e2ee keys init") + " first"
				return nil
			}
			return fmt.Errorf("encrypt file: %w", err)
		}

		out, err := json.Marshal(encrypted)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		if err := os.WriteFile(outPath, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}

		spinner.FinalMSG = cliui.Success.Sprint("✓") + " Encrypted " + cliui.Path.Sprint(inPath) +
			" " + cliui.Muted.Sprintf("%d bytes", len(data)) + "\n" +
			cliui.Info.Sprint("→") + " Share " + cliui.Path.Sprint(outPath) + " with " + cliui.Highlight.Sprint(fileTo)
		return nil
	},
}

var decryptFileCmd = &cobra.Command{
	Use:   "decrypt-file <input> <output>",
	Short: "Decrypt a file envelope with the local key pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath, outPath := args[0], args[1]
		raw, err := os.ReadFile(inPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", inPath, err)
		}
		var encrypted models.EncryptedFile
		if err := json.Unmarshal(raw, &encrypted); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		data, err := core.Messenger.DecryptFile(cmd.Context(), encrypted)
		if err != nil {
			switch {
			case errors.Is(err, keys.ErrLocalKeyNotFound):
				fmt.Println(cliui.Error.Sprint("✗") + " No key pair on this device to decrypt with")
				fmt.Println(cliui.Info.Sprint("→") + " Run " + cliui.Code.Sprint("planit-e2ee keys init") + " or " + cliui.Code.Sprint("planit-e2ee recovery import") + " first")
			case errors.Is(err, crypto.ErrAuthentication):
				fmt.Println(cliui.Error.Sprint("✗") + " Envelope does not open with any key on this device")
			default:
				return fmt.Errorf("decrypt file: %w", err)
			}
			return nil
		}
		defer crypto.Wipe(data)

		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		fmt.Println(cliui.Success.Sprint("✓") + " Decrypted to " + cliui.Path.Sprint(outPath) +
			" " + cliui.Muted.Sprintf("%d bytes", len(data)))
		return nil
	},
}

func init() {
	encryptFileCmd.Flags().StringVar(&fileFrom, "from", "", "sender user ID")
	encryptFileCmd.Flags().StringVar(&fileTo, "to", "", "recipient user ID")
	_ = encryptFileCmd.MarkFlagRequired("from")
	_ = encryptFileCmd.MarkFlagRequired("to")
}
