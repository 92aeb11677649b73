package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/ingest"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage stored job postings",
}

var jobsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Store postings from a JSON or YAML file and schedule their embeddings",
	Long: `Store postings from a JSON or YAML file and schedule their embeddings.

The file holds a list of postings, a single posting, or an object with the
list under the "jobs" key. With the memory backend the postings only live
for the duration of the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		records, err := jobs.ReadRecords(args[0], "jobs")
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		sched, err := e.Scheduler(ctx)
		if err != nil {
			return err
		}

		importer := ingest.New(e.store, sched, jobs.NewDecoder(), e.logger)
		summary, err := importer.Import(ctx, records, e.cfg.Embedding.Dimension)
		if err != nil {
			e.logger.Error("import failed", zap.Error(err))
			return err
		}

		e.logger.Info("import finished",
			zap.String("file", args[0]),
			zap.Int("stored", summary.Stored),
			zap.Int("scheduled", summary.Scheduled),
			zap.Strings("failed", summary.Failed),
		)
		if len(summary.Failed) > 0 {
			return fmt.Errorf("%d postings were stored without a scheduled embedding", len(summary.Failed))
		}
		return nil
	},
}

var jobsDismissCmd = &cobra.Command{
	Use:   "dismiss JOB_ID...",
	Short: "Hide postings from a user's future recommendations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return errors.New("--user is required")
		}

		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.dismissed.Dismiss(ctx, userID, args...); err != nil {
			e.logger.Error("dismiss failed", zap.Error(err))
			return err
		}

		e.logger.Info("postings dismissed", zap.String("user_id", userID), zap.Strings("job_ids", args))
		return nil
	},
}

func init() {
	jobsDismissCmd.Flags().StringP("user", "u", "", "id of the user dismissing the postings")

	jobsCmd.AddCommand(jobsImportCmd, jobsDismissCmd)
	rootCmd.AddCommand(jobsCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
