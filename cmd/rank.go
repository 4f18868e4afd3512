package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/ai/gemini"
	"github.com/kvanticoder/jobscout/internal/fetcher"
	"github.com/kvanticoder/jobscout/internal/job"
	"github.com/kvanticoder/jobscout/internal/logger"
	"github.com/kvanticoder/jobscout/internal/ranking"
	"github.com/kvanticoder/jobscout/internal/resume"
	"github.com/kvanticoder/jobscout/internal/secrets"
	"github.com/kvanticoder/jobscout/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rate the pending scanned jobs against your resume",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before spending model calls")
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the jobscout rank", zap.String("version", version))

	if config.Resume == "" {
		logger.Fatal("a resume pdf path is required under resume")
	}

	// The resume must load before any network spend.
	resumeText, err := resume.ExtractText(config.Resume)
	if err != nil {
		logger.Fatal("loading the resume", zap.Error(err))
	}

	st, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the data store", zap.Error(err))
	}

	pending, err := st.Pending(ctx)
	if err != nil {
		logger.Fatal("loading pending jobs", zap.Error(err))
	}
	if len(pending) == 0 {
		logger.Info("exiting", zap.String("reason", "no pending jobs to rate"))
		return
	}
	logger.Info("pending jobs loaded", zap.Int("count", len(pending)))

	if cmd.Flag("auto-approve").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Rate %d pending jobs with the model?", len(pending)),
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	generator, ranker, err := newGeminiRanker(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the model client", zap.Error(err))
	}

	if config.AI != nil && config.AI.UseResumeCache {
		name, err := generator.EnsureResumeCache(ctx, config.Resume, resumeText)
		if err != nil {
			logger.Warn("resume cache unavailable, inlining resume into prompts", zap.Error(err))
		} else {
			logger.Info("resume cache ready", zap.String("cache", name))
			ranker.UseCache(name)
		}
	}

	engineCfg := ranking.Config{
		ResumePath: config.Resume,
		Include:    config.includeKeywords(),
		Exclude:    config.excludeKeywords(),
	}
	if config.AI != nil {
		engineCfg.StrongThreshold = config.AI.StrongThreshold
		engineCfg.LLMThreshold = config.AI.LLMThreshold
	}

	engine, err := ranking.NewEngine(ranking.Deps{
		Logger:   logger,
		Fetcher:  fetcher.New(ctx, logger, config.fetchPolicy()),
		Embedder: generator,
		Ranker:   ranker,
	}, engineCfg)
	if err != nil {
		logger.Fatal("creating the ranking engine", zap.Error(err))
	}

	if err := engine.PrepareText(ctx, resumeText); err != nil {
		logger.Fatal("preparing the resume", zap.Error(err))
	}

	rated, rateErr := engine.RateAll(ctx, pending)

	if len(rated) > 0 {
		rows := make([][]string, 0, len(rated))
		for _, row := range rated {
			rows = append(rows, row.Fields())
		}
		if err := st.Append(ctx, store.TableRated, rows); err != nil {
			logger.Fatal("recording rated jobs", zap.Error(err))
		}
	}

	if rateErr != nil {
		logger.Fatal("rating interrupted", zap.Error(rateErr), zap.Int("rated", len(rated)))
	}

	printRankSummary(rated)
}

func newGeminiRanker(ctx context.Context, config *Config, baseLogger *zap.Logger) (*gemini.Generator, *gemini.Ranker, error) {
	var (
		model, embedModel string
		maxLogLength      int
		source            = secrets.Source{Name: "gemini api key"}
	)

	if config.AI != nil {
		provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
		if provider != "" && provider != "gemini" {
			return nil, nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
		}
		maxLogLength = config.AI.MaxLogLength
		if config.AI.Gemini != nil {
			model = config.AI.Gemini.Model
			embedModel = config.AI.Gemini.EmbeddingModel
			source.Value = config.AI.Gemini.APIKey
			source.File = config.AI.Gemini.APIKeyFile
		}
	}

	apiKey, err := secrets.Load(source)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key, ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, model, embedModel)
	if err != nil {
		return nil, nil, err
	}

	aiLogger := logger.WithCommonFields(baseLogger, "gemini", generator.Model())
	return generator, gemini.NewRanker(generator, aiLogger, maxLogLength), nil
}

func printRankSummary(rated []job.RatedRow) {
	var failed, rejected, scored int
	for _, row := range rated {
		switch {
		case row.ScrapedFailed == "Yes":
			failed++
		case row.NoMatchingJobTitle == "Yes":
			rejected++
		case row.LLMRanking != "":
			scored++
		}
	}

	fmt.Printf("%s %d jobs rated (%d scored by the model)\n", color.GreenString("✓"), len(rated), scored)
	if rejected > 0 {
		fmt.Printf("%s %d rejected by keywords\n", color.YellowString("-"), rejected)
	}
	if failed > 0 {
		fmt.Printf("%s %d pages could not be scraped\n", color.RedString("!"), failed)
	}
}
