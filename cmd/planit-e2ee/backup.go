package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/backup"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/spf13/cobra"
)

var (
	backupUser   string
	backupOutDir string
	restoreOut   string
	forgetID     string
	forgetForce  bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and restore encrypted history backups",
	Long: `Backups are sealed under a key derived for that one backup and held in
the local vault. The server side only ever sees ciphertext plus a
truncated key digest for matching.`,
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupUser, "user", "", "user ID the backup belongs to")
	_ = backupCreateCmd.MarkFlagRequired("user")
	backupCreateCmd.Flags().StringVar(&backupOutDir, "out", ".", "directory for the blob and manifest")
	backupRestoreCmd.Flags().StringVar(&restoreOut, "out", "", "write the restored payload to this file instead of stdout")
	backupForgetCmd.Flags().StringVar(&forgetID, "backup", "", "backup ID to forget")
	_ = backupForgetCmd.MarkFlagRequired("backup")
	backupForgetCmd.Flags().BoolVar(&forgetForce, "force", false, "skip confirmation prompt")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupForgetCmd)
	backupCmd.AddCommand(backupListCmd)
}

var backupCreateCmd = &cobra.Command{
	Use:   "create <input>",
	Short: "Seal a payload into a new backup",
	Long: `Derives a fresh backup key, seals the payload, stores the key in the
local vault, and writes two artifacts next to each other:

  <backup-id>.planitbak      the sealed payload, safe to upload anywhere
  <backup-id>.manifest.json  what the server stores alongside it

Examples:
  planit-e2ee backup create --user usr_123 history-export.json
  planit-e2ee backup create --user usr_123 --out /tmp/backups history-export.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		blob, manifest, err := core.Backups.Export(backupUser, payload)
		crypto.Wipe(payload)
		if err != nil {
			return fmt.Errorf("create backup: %w", err)
		}

		if err := os.MkdirAll(backupOutDir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", backupOutDir, err)
		}
		blobPath := filepath.Join(backupOutDir, manifest.BackupID+".planitbak")
		manifestPath := filepath.Join(backupOutDir, manifest.BackupID+".manifest.json")

		if err := os.WriteFile(blobPath, blob, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", blobPath, err)
		}
		manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
		if err := os.WriteFile(manifestPath, manifestJSON, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", manifestPath, err)
		}

		fmt.Println(cliui.Success.Sprint("✓") + " Backup created " + cliui.Highlight.Sprint(manifest.BackupID))
		fmt.Println("  Blob:     " + cliui.Path.Sprint(blobPath))
		fmt.Println("  Manifest: " + cliui.Path.Sprint(manifestPath))
		fmt.Println(cliui.Info.Sprint("→") + " The backup key stays in the local vault; the manifest only carries its digest")
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <manifest> <blob>",
	Short: "Restore a backup with the key held in the local vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestJSON, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var manifest models.BackupManifest
		if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
			return fmt.Errorf("decode manifest: %w", err)
		}
		blob, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		payload, err := core.Backups.Restore(manifest, blob)
		if err != nil {
			switch {
			case errors.Is(err, backup.ErrKeyMismatch):
				fmt.Println(cliui.Error.Sprint("✗") + " The vault key does not match this manifest")
				fmt.Println(cliui.Info.Sprint("→") + " Nothing was decrypted; the blob may belong to another device or vault")
			case errors.Is(err, backup.ErrBackupKeyNotFound):
				fmt.Println(cliui.Error.Sprint("✗") + " No key for backup " + cliui.Highlight.Sprint(manifest.BackupID) + " in the local vault")
			default:
				return fmt.Errorf("restore backup: %w", err)
			}
			return nil
		}
		defer crypto.Wipe(payload)

		return writeOutput(restoreOut, payload, 0o600)
	},
}

var backupVerifyCmd = &cobra.Command{
	Use:     "verify <manifest>",
	Aliases: []string{"restore-check"},
	Short:   "Check that the local vault holds the key for a manifest",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestJSON, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var manifest models.BackupManifest
		if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
			return fmt.Errorf("decode manifest: %w", err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		switch err := core.Backups.VerifyKey(manifest); {
		case err == nil:
			fmt.Println(cliui.Success.Sprint("✓") + " Vault key matches " + cliui.Highlight.Sprint(manifest.BackupID))
		case errors.Is(err, backup.ErrKeyMismatch):
			fmt.Println(cliui.Error.Sprint("✗") + " Vault key does not match this manifest")
		case errors.Is(err, backup.ErrBackupKeyNotFound):
			fmt.Println(cliui.Error.Sprint("✗") + " No key for this backup in the local vault")
		default:
			return fmt.Errorf("verify backup key: %w", err)
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which backup keys this device still holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		ids, err := core.Backups.List()
		if err != nil {
			return fmt.Errorf("list backup keys: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("The vault holds no backup keys.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(cliui.Highlight.Sprint(id))
		}
		return nil
	},
}

var backupForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Drop a backup key from the local vault",
	Long: `Removes the key for one backup from the vault. The sealed blob then
becomes permanently unreadable from this device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		if !forgetForce {
			fmt.Printf("%s The backup sealed under this key becomes unreadable.\n", cliui.Warning.Sprint("Warning:"))
			if !confirm(nil, "Do you want to continue?") {
				fmt.Println(cliui.Warning.Sprint("⚠") + " Forget cancelled.")
				return nil
			}
		}

		if err := core.Backups.Forget(forgetID); err != nil {
			return fmt.Errorf("forget backup key: %w", err)
		}
		fmt.Println(cliui.Success.Sprint("✓") + " Key for " + cliui.Highlight.Sprint(forgetID) + " removed from the vault")
		return nil
	},
}
