package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Maintain posting and profile embeddings",
}

var embeddingsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Schedule embeddings for every posting and profile that lacks one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := commandContext(cmd)
		batch, _ := cmd.Flags().GetInt("batch")

		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if batch <= 0 {
			batch = e.cfg.Worker.BackfillBatch
		}

		syncer, err := e.Syncer(ctx)
		if err != nil {
			return err
		}
		sched, err := e.Scheduler(ctx)
		if err != nil {
			return err
		}

		report, err := syncer.Backfill(ctx, sched, batch)
		if err != nil {
			e.logger.Error("backfill failed", zap.Error(err))
			return err
		}

		e.logger.Info("backfill finished",
			zap.Int("jobs", report.Jobs),
			zap.Int("users", report.Users),
			zap.Int("failed", report.Failed),
		)
		if report.Failed > 0 {
			return fmt.Errorf("%d records could not be scheduled", report.Failed)
		}
		return nil
	},
}

func init() {
	embeddingsSyncCmd.Flags().Int("batch", 0, "maximum postings and profiles per run (default from config)")

	embeddingsCmd.AddCommand(embeddingsSyncCmd)
	rootCmd.AddCommand(embeddingsCmd)
}
