package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
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
	msgFrom string
	msgTo   string
	msgIn   string
	msgOut  string
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Encrypt or decrypt a single message payload",
	Long: `Seals plaintext for one recipient, or opens a sealed payload with the
local key pair. Payloads travel as JSON, the same shape the hosted
message store persists.`,
}

func init() {
	messageEncryptCmd.Flags().StringVar(&msgFrom, "from", "", "sender user ID")
	messageEncryptCmd.Flags().StringVar(&msgTo, "to", "", "recipient user ID")
	_ = messageEncryptCmd.MarkFlagRequired("from")
	_ = messageEncryptCmd.MarkFlagRequired("to")
	messageEncryptCmd.Flags().StringVar(&msgIn, "in", "", "read plaintext from this file instead of stdin")
	messageEncryptCmd.Flags().StringVar(&msgOut, "out", "", "write the payload to this file instead of stdout")
	messageDecryptCmd.Flags().StringVar(&msgIn, "in", "", "read the payload from this file instead of stdin")
	messageDecryptCmd.Flags().StringVar(&msgOut, "out", "", "write plaintext to this file instead of stdout")

	messageCmd.AddCommand(messageEncryptCmd)
	messageCmd.AddCommand(messageDecryptCmd)
}

var messageEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Seal plaintext for a recipient",
	Long: `Fetches the recipient's active public key from the directory, derives
the pairwise key, and prints the sealed payload as JSON.

Examples:
  echo "see you at 8" | planit-e2ee message encrypt --from usr_123 --to usr_456
  planit-e2ee message encrypt --from usr_123 --to usr_456 --in note.txt --out payload.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plaintext, err := readInput(msgIn)
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Encrypting message...")
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		payload, err := core.Messenger.EncryptMessage(cmd.Context(), msgFrom, msgTo, plaintext)
		crypto.Wipe(plaintext)
		if err != nil {
			if errors.Is(err, directory.ErrRecipientKeyNotFound) {
				spinner.FinalMSG = cliui.Error.Sprint("✗") + " " + cliui.Highlight.Sprint(msgTo) + " has no published key\n" +
					cliui.Info.Sprint("→") + " They need to run " + cliui.Code.Sprint("planit-e2ee keys init") + " first"
				return nil
			}
			return fmt.Errorf("encrypt message: %w", err)
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		if err := writeOutput(msgOut, append(data, '\n'), 0o644); err != nil {
			return err
		}
		if msgOut != "" {
			spinner.FinalMSG = cliui.Success.Sprint("✓") + " Sealed payload written to " + cliui.Path.Sprint(msgOut)
		}
		return nil
	},
}

var messageDecryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Open a sealed payload with the local key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(msgIn)
		if err != nil {
			return err
		}
		var payload models.EncryptedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		plaintext, err := core.Messenger.DecryptMessage(cmd.Context(), payload)
		if err != nil {
			switch {
			case errors.Is(err, keys.ErrLocalKeyNotFound):
				fmt.Println(cliui.Error.Sprint("✗") + " No key pair on this device to decrypt with")
				fmt.Println(cliui.Info.Sprint("→") + " Run " + cliui.Code.Sprint("planit-e2ee keys init") + " or " + cliui.Code.Sprint("planit-e2ee recovery import") + " first")
			case errors.Is(err, crypto.ErrAuthentication):
				fmt.Println(cliui.Error.Sprint("✗") + " Payload does not open with any key on this device")
				fmt.Println(cliui.Info.Sprint("→") + " It may be addressed to another device, or it was tampered with")
			default:
				return fmt.Errorf("decrypt message: %w", err)
			}
			return nil
		}
		defer crypto.Wipe(plaintext)

		return writeOutput(msgOut, plaintext, 0o600)
	},
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
