package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborline/dealdesk-cli/internal/archive"
	"github.com/harborline/dealdesk-cli/internal/model"
)

var (
	archiveKind          string
	archiveOlderThanDays int
	purgeRetentionDays   int
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Bulk lifecycle operations on CRM records",
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive live records not updated within the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind := model.Kind(archiveKind)
		if !kind.Valid() {
			return eris.Errorf("unknown kind %q (want capital_partner, sponsor, or partner_team)", archiveKind)
		}

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		cutoff := time.Now().UTC().AddDate(0, 0, -archiveOlderThanDays)
		_, err = archive.New(env.Store, "cli").BulkArchive(ctx, kind, cutoff)
		return err
	},
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore KIND ID",
	Short: "Bring an archived record back into the live book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind := model.Kind(args[0])
		if !kind.Valid() {
			return eris.Errorf("unknown kind %q (want capital_partner, sponsor, or partner_team)", args[0])
		}

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		return archive.New(env.Store, "cli").Restore(ctx, kind, args[1])
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently delete archived records past retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		days := purgeRetentionDays
		if days == 0 {
			days = cfg.Archive.RetentionDays
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		_, err = archive.New(env.Store, "cli").Purge(ctx, cutoff)
		return err
	},
}

func init() {
	archiveRunCmd.Flags().StringVar(&archiveKind, "kind", "", "record kind to archive (required)")
	archiveRunCmd.Flags().IntVar(&archiveOlderThanDays, "older-than-days", 0, "archive records not updated in this many days (required)")
	_ = archiveRunCmd.MarkFlagRequired("kind")
	_ = archiveRunCmd.MarkFlagRequired("older-than-days")

	archivePurgeCmd.Flags().IntVar(&purgeRetentionDays, "retention-days", 0, "retention window in days (default from config)")

	archiveCmd.AddCommand(archiveRunCmd)
	archiveCmd.AddCommand(archiveRestoreCmd)
	archiveCmd.AddCommand(archivePurgeCmd)
	rootCmd.AddCommand(archiveCmd)
}
