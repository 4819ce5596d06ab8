package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kamalraji/plan-it-together-sub013/internal/app"
	"github.com/kamalraji/plan-it-together-sub013/internal/cliui"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/spf13/cobra"
)

var recordsConversation string

var statusCmd = &cobra.Command{
	Use:   "status <conversation-id>",
	Short: "Classify a conversation's encryption posture",
	Long: `Samples the conversation's most recent stored message records and
reports one of:

  fully_encrypted  every sampled message is end-to-end encrypted
  legacy           plaintext history from before encryption was enabled
  mixed            encrypted and plaintext messages side by side
  transport_only   no local keys yet, nothing stored end-to-end encrypted
  analysis_failed  the records could not be read

Feed records in with 'planit-e2ee records import' first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		status, err := core.Status.Analyze(cmd.Context(), args[0])
		if err != nil {
			fmt.Println(statusLine(models.StatusAnalysisFailed))
			return fmt.Errorf("analyze conversation: %w", err)
		}
		fmt.Println(statusLine(status))
		return nil
	},
}

func statusLine(status models.EncryptionStatus) string {
	switch status {
	case models.StatusFullyEncrypted:
		return cliui.Success.Sprint("✓") + " fully_encrypted " + cliui.Muted.Sprint("every sampled message is end-to-end encrypted")
	case models.StatusLegacy:
		return cliui.Warning.Sprint("⚠") + " legacy " + cliui.Muted.Sprint("plaintext history from before encryption")
	case models.StatusMixed:
		return cliui.Warning.Sprint("⚠") + " mixed " + cliui.Muted.Sprint("encrypted and plaintext messages side by side")
	case models.StatusTransportOnly:
		return cliui.Error.Sprint("✗") + " transport_only " + cliui.Muted.Sprint("no end-to-end encryption yet")
	default:
		return cliui.Error.Sprint("✗") + " analysis_failed"
	}
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage the local message record snapshots status sampling reads",
}

func init() {
	recordsImportCmd.Flags().StringVar(&recordsConversation, "conversation", "", "conversation the records belong to")
	_ = recordsImportCmd.MarkFlagRequired("conversation")

	recordsCmd.AddCommand(recordsImportCmd)
	recordsCmd.AddCommand(recordsListCmd)
}

var recordsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import message records from a JSON export",
	Long: `Reads a JSON array of message records, as produced by the mobile
client's conversation export, and appends them to the local snapshot.
Records carry transport metadata only, never message content.

Examples:
  planit-e2ee records import --conversation conv_789 export.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var records []models.MessageRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("decode records: %w", err)
		}

		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		imported := 0
		for _, rec := range records {
			if err := core.Records.Append(recordsConversation, rec); err != nil {
				return fmt.Errorf("import record %s: %w", rec.ID, err)
			}
			imported++
		}
		fmt.Printf("%s Imported %d records into %s\n",
			cliui.Success.Sprint("✓"), imported, cliui.Highlight.Sprint(recordsConversation))
		return nil
	},
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations with stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := buildCore()
		if err != nil {
			if errors.Is(err, app.ErrPassphraseRequired) {
				fmt.Println(passphraseMissingMsg())
				return nil
			}
			return err
		}

		conversations := core.Records.Conversations()
		if len(conversations) == 0 {
			fmt.Println(cliui.Muted.Sprint("no records stored"))
			return nil
		}
		for _, id := range conversations {
			fmt.Printf("%s  %s\n", cliui.Highlight.Sprint(id), cliui.Muted.Sprintf("%d records", core.Records.Count(id)))
		}
		return nil
	},
}
