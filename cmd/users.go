package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/profiles"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user profiles",
}

var usersRegisterCmd = &cobra.Command{
	Use:   "register FILE",
	Short: "Store new user profiles from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		records, err := jobs.ReadRecords(args[0], "users")
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

		service := profiles.New(e.store, sched, jobs.NewDecoder(), e.logger)
		for idx, record := range records {
			outcome, err := service.Register(ctx, record)
			if err != nil {
				e.logger.Error("register failed", zap.Int("record", idx), zap.Error(err))
				return err
			}
			if err := printProfile(cmd, outcome); err != nil {
				return err
			}
		}
		return nil
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update USER_ID FILE",
	Short: "Overwrite the fields of a user profile present in a JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		records, err := jobs.ReadRecords(args[1], "users")
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		if len(records) != 1 {
			return fmt.Errorf("%s must hold exactly one profile, got %d", args[1], len(records))
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

		service := profiles.New(e.store, sched, jobs.NewDecoder(), e.logger)
		outcome, err := service.Update(ctx, args[0], records[0])
		if err != nil {
			e.logger.Error("update failed", zap.String("user_id", args[0]), zap.Error(err))
			return err
		}
		return printProfile(cmd, outcome)
	},
}

func init() {
	usersCmd.AddCommand(usersRegisterCmd, usersUpdateCmd)
	rootCmd.AddCommand(usersCmd)
}

func printProfile(cmd *cobra.Command, outcome *profiles.Outcome) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		User               *jobs.UserProfile `json:"user"`
		EmbeddingScheduled bool              `json:"embedding_scheduled"`
	}{outcome.User, outcome.EmbeddingScheduled})
}
