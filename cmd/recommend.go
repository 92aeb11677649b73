package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/config"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/recommend"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

const (
	PromptBrowse          = "Browse recommendations"
	PromptReportByCompany = "Report by company"
	PromptPostingsToFile  = "Dump postings to file"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank job postings for a free-text query or a stored user profile",
	Example: `  jobrec recommend --query "golang backend engineer" --remote-only
  jobrec recommend --user 8d1c... --mode rules --limit 5`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("query", "q", "", "free-text search query")
	recommendCmd.Flags().StringP("user", "u", "", "id of a stored user profile")
	recommendCmd.Flags().String("mode", string(recommend.ModeAuto), "ranking strategy: auto, similarity or rules")
	recommendCmd.Flags().IntP("limit", "l", 0, "maximum number of postings (default from config)")
	recommendCmd.Flags().Float64("min-score", 0, "minimum similarity in [0,1] (default from config)")
	recommendCmd.Flags().String("job-type", "", "keep only postings of this job type")
	recommendCmd.Flags().String("location", "", "keep only postings whose location contains this text")
	recommendCmd.Flags().Bool("remote-only", false, "keep only remote postings")
	recommendCmd.Flags().Bool("show-dismissed", false, "do not hide postings the user dismissed")
	recommendCmd.Flags().BoolP("interactive", "i", false, "browse the results interactively")
	recommendCmd.Flags().Bool("output-json", false, "print the result as JSON to stdout")
}

func runRecommend(cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	sel, opts, err := recommendRequest(cmd)
	if err != nil {
		return err
	}

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	opts.ExcludeCompanies = append(opts.ExcludeCompanies, e.cfg.ExcludeCompanies...)

	needsEmbedder := sel.Query != "" ||
		(e.cfg.Storage.Backend == config.BackendMemory && opts.Mode == recommend.ModeSimilarity)

	service, err := e.Recommender(ctx, needsEmbedder)
	if err != nil {
		e.logger.Error("preparing recommendations", zap.Error(err))
		return err
	}

	result, err := service.Recommend(ctx, sel, opts)
	if err != nil {
		e.logger.Error("recommendation failed", zap.Error(err))
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("output-json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(e.logger, result)

	if interactive, _ := cmd.Flags().GetBool("interactive"); !interactive || len(result.Items) == 0 {
		return nil
	}

	b := &browser{
		logger:    e.logger,
		dismissed: e.dismissed,
		userID:    sel.UserID,
		postings:  result.Postings(),
	}
	if err := b.run(ctx); err != nil && !errors.Is(err, errExit) && !errors.Is(err, promptui.ErrInterrupt) {
		return err
	}
	return nil
}

// recommendRequest turns the command flags into a service request.
func recommendRequest(cmd *cobra.Command) (recommend.Selector, recommend.Options, error) {
	flags := cmd.Flags()

	query, _ := flags.GetString("query")
	userID, _ := flags.GetString("user")
	modeName, _ := flags.GetString("mode")
	limit, _ := flags.GetInt("limit")
	jobType, _ := flags.GetString("job-type")
	location, _ := flags.GetString("location")
	remoteOnly, _ := flags.GetBool("remote-only")
	showDismissed, _ := flags.GetBool("show-dismissed")

	mode, err := recommend.ParseMode(modeName)
	if err != nil {
		return recommend.Selector{}, recommend.Options{}, err
	}

	opts := recommend.Options{
		Limit:         limit,
		JobType:       jobType,
		Location:      location,
		RemoteOnly:    remoteOnly,
		Mode:          mode,
		ShowDismissed: showDismissed,
	}
	if flags.Changed("min-score") {
		score, _ := flags.GetFloat64("min-score")
		opts.MinScore = &score
	}

	return recommend.Selector{Query: query, UserID: userID}, opts, nil
}

func printResult(log *zap.Logger, result *recommend.RankedResult) {
	fields := []zap.Field{
		zap.String("strategy", string(result.Strategy)),
		zap.Int("total", result.Total),
		zap.Int("returned", len(result.Items)),
	}
	if result.QueryUsed != "" {
		fields = append(fields, zap.String("query_used", result.QueryUsed))
	}
	if result.Message != "" {
		fields = append(fields, zap.String("message", result.Message))
	}
	log.Info("recommendations", fields...)

	for idx, item := range result.Items {
		itemFields := []zap.Field{
			zap.Int("rank", idx+1),
			zap.String("job_id", item.Job.ID),
			zap.String("title", item.Job.Title),
			zap.String("company", item.Job.Company),
			zap.String("location", item.Job.Location),
		}
		switch result.Strategy {
		case recommend.StrategySimilarity:
			itemFields = append(itemFields, zap.Float64("similarity", item.Similarity))
		case recommend.StrategyRules:
			itemFields = append(itemFields,
				zap.Int("score", item.Score),
				zap.Int("match_percentage", item.Percentage),
				zap.Strings("reasons", item.Reasons),
			)
		}
		log.Info("posting", itemFields...)
	}
}

// browser walks the user through a recommendation result.
type browser struct {
	logger    *zap.Logger
	dismissed storage.DismissedStore
	userID    string
	postings  *jobs.Postings
}

func (b *browser) run(ctx context.Context) error {
	for {
		if b.postings.Len() == 0 {
			b.logger.Info("exiting", zap.String("reason", "no postings left"))
			return nil
		}

		prompt := promptui.Select{
			Label: "What next?",
			Items: []string{PromptBrowse, PromptReportByCompany, PromptPostingsToFile, PromptExit},
		}
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		b.logger.Info("current list of postings", zap.Int("count", b.postings.Len()))

		if err := b.handleAction(ctx, action); err != nil {
			return err
		}
	}
}

func (b *browser) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptExit:
		return errExit
	case PromptBrowse:
		return b.browse(ctx)
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(b.postings.ReportByCompany(), "", "  ")
		b.logger.Info(string(pretty), zap.Int("postings count", b.postings.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := b.postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		b.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// browse lists the postings. Selecting one shows it and, for a user
// request, offers to dismiss it.
func (b *browser) browse(ctx context.Context) error {
	for {
		items := make([]string, 0, b.postings.Len()+1)
		for _, p := range b.postings.Items {
			items = append(items, fmt.Sprintf("%s %s / %s / %s", p.ID, p.Title, p.Company, p.Location))
		}

		postingPrompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		_, selected, err := postingPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		id := strings.Split(selected, " ")[0]
		posting := b.postings.FindByID(id)
		if posting == nil {
			return fmt.Errorf("there is no such posting id %s", id)
		}

		pretty, _ := json.MarshalIndent(posting, "", "  ")
		b.logger.Info(string(pretty))

		if b.userID == "" || b.dismissed == nil {
			continue
		}

		confirm := promptui.Prompt{Label: "Dismiss this posting", IsConfirm: true}
		if _, err := confirm.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				continue
			}
			return err
		}

		if err := b.dismissed.Dismiss(ctx, b.userID, id); err != nil {
			return fmt.Errorf("dismiss posting: %w", err)
		}
		b.postings.Exclude([]string{id})
		b.logger.Info("posting dismissed", zap.String("job_id", id), zap.String("user_id", b.userID))
	}
}
