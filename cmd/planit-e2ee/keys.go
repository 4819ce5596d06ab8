package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"

	"github.com/spf13/cobra"
)

var (
	keysUser    string
	rotateForce bool
	clearForce  bool
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage this device's encryption key pair",
	Long: `Provides creation, inspection, rotation, and removal of the local
key pair. The private half never leaves the sealed keystore; only the
public half is published to the key directory.`,
}

func init() {
	keysInitCmd.Flags().StringVar(&keysUser, "user", "", "user ID to provision keys for")
	_ = keysInitCmd.MarkFlagRequired("user")
	keysRotateCmd.Flags().StringVar(&keysUser, "user", "", "user ID the key pair belongs to")
	_ = keysRotateCmd.MarkFlagRequired("user")
	keysRotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	keysClearCmd.Flags().BoolVar(&clearForce, "force", false, "skip confirmation prompt")

	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysRotateCmd)
	keysCmd.AddCommand(keysClearCmd)
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a key pair for this device and publish the public half",
	Long: `Creates a key pair on first run and publishes its public half to the
key directory so contacts can encrypt to this device. Running it again is
safe: an existing valid pair is reused, and a publication that failed
earlier is retried.

Examples:
  planit-e2ee keys init --user usr_123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Provisioning keys...")
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		pair, err := core.Keys.GetOrCreate(cmd.Context(), keysUser)
		if err != nil {
			return fmt.Errorf("provision keys: %w", err)
		}
		defer pair.Wipe()

		spinner.FinalMSG = cliui.Success.Sprint("✓") + " Key pair ready\n\n" +
			"  Key ID:  " + cliui.Highlight.Sprint(pair.KeyID) + "\n" +
			"  Expires: " + pair.ExpiresAt.Format(time.RFC3339) + "\n\n" +
			cliui.Info.Sprint("→") + " Write down your recovery phrase: " + cliui.Code.Sprint("planit-e2ee recovery export")
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active key pair without touching the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		pair, ok := core.Keys.Current()
		if !ok {
			fmt.Println(cliui.Error.Sprint("✗") + " No key pair on this device")
			fmt.Println(cliui.Info.Sprint("→") + " Run " + cliui.Code.Sprint("planit-e2ee keys init --user <id>") + " first")
			return nil
		}
		defer pair.Wipe()

		publicText, err := keys.EncodePublic(pair.Public)
		if err != nil {
			return fmt.Errorf("encode public key: %w", err)
		}

		fmt.Println("Key ID:     " + cliui.Highlight.Sprint(pair.KeyID))
		fmt.Println("Public key: " + publicText)
		fmt.Println("Created:    " + pair.CreatedAt.Format(time.RFC3339))
		fmt.Println("Expires:    " + pair.ExpiresAt.Format(time.RFC3339))
		if remaining := time.Until(pair.ExpiresAt); remaining < 30*24*time.Hour {
			fmt.Println(cliui.Warning.Sprint("⚠") + " Pair expires soon " + cliui.Muted.Sprintf("in %s", remaining.Round(time.Hour)))
		}
		return nil
	},
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace the key pair and publish the new public half",
	Long: `Generates a fresh key pair, publishes its public half, and archives
the old pair so messages encrypted to it remain readable.

After rotation:
  - New messages from contacts use the new key once their caches refresh
  - Old conversations stay decryptable through the archived pair
  - The previous recovery phrase no longer matches; export a new one

Examples:
  planit-e2ee keys rotate --user usr_123
  planit-e2ee keys rotate --user usr_123 --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner("Rotating key pair...")
		defer cleanup()

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				spinner.FinalMSG = passphraseMissingMsg()
				return nil
			}
			return err
		}

		if !rotateForce {
			fmt.Printf("\n%s This replaces your current key pair.\n", cliui.Warning.Sprint("Warning:"))
			fmt.Println("  The old pair is archived for reading existing messages only.")
			fmt.Println()
			if !confirm(spinner, "Do you want to continue?") {
				spinner.FinalMSG = cliui.Warning.Sprint("⚠") + " Rotation cancelled."
				return nil
			}
		}

		pair, err := core.Keys.Rotate(cmd.Context(), keysUser)
		if err != nil {
			return fmt.Errorf("rotate keys: %w", err)
		}
		defer pair.Wipe()

		spinner.FinalMSG = cliui.Success.Sprint("✓") + " Key pair rotated\n\n" +
			"  New key ID: " + cliui.Highlight.Sprint(pair.KeyID) + "\n\n" +
			cliui.Info.Sprint("→") + " Export the new recovery phrase: " + cliui.Code.Sprint("planit-e2ee recovery export")
		return nil
	},
}

var keysClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe every key pair from this device",
	Long: `Deletes the sealed keystore, active and archived pairs included.

Without the recovery phrase this is final: messages encrypted to the
removed pairs become unreadable on this device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		if !clearForce {
			fmt.Printf("%s This wipes every key pair on this device.\n", cliui.Warning.Sprint("Warning:"))
			fmt.Println("  Without the recovery phrase, existing messages become unreadable.")
			fmt.Println()
			if !confirm(nil, "Do you want to continue?") {
				fmt.Println(cliui.Warning.Sprint("⚠") + " Clear cancelled.")
				return nil
			}
		}

		if err := core.Keys.Clear(); err != nil {
			return fmt.Errorf("clear keys: %w", err)
		}
		fmt.Println(cliui.Success.Sprint("✓") + " Keystore wiped")
		return nil
	},
}
