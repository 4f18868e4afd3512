package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/fetcher"
	"github.com/kvanticoder/jobscout/internal/filtering"
	"github.com/kvanticoder/jobscout/internal/job"
	"github.com/kvanticoder/jobscout/internal/logger"
	"github.com/kvanticoder/jobscout/internal/sources"
	"github.com/kvanticoder/jobscout/internal/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Crawl the configured job boards and record new relevant postings",
	Run: func(cmd *cobra.Command, _ []string) {
		scan(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("dump", false, "dump the surviving postings to a json file as well")
}

func scan(cmd *cobra.Command) {
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

	logger.Info("starting the jobscout scan", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Query == nil || config.Query.Keyword == "" {
		logger.Fatal("a search keyword is required under query.keyword")
	}

	st, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the data store", zap.Error(err))
	}

	seen, err := st.KnownIDs(ctx)
	if err != nil {
		logger.Fatal("loading known job ids", zap.Error(err))
	}
	logger.Info("loaded known job ids", zap.Int("count", seen.Len()))

	srcs, err := sources.Build(config.Sources)
	if err != nil {
		logger.Fatal("building sources", zap.Error(err))
	}
	if len(srcs) == 0 {
		logger.Info("exiting", zap.String("reason", "no sources enabled"))
		return
	}

	deps := sources.Deps{
		Fetcher: fetcher.New(ctx, logger, config.fetchPolicy()),
		Logger:  logger,
		Render:  fetcher.Rendered,
	}

	all := &job.Postings{}
	for _, src := range srcs {
		postings, err := src.Scrape(ctx, deps, *config.Query)
		if err != nil {
			logger.Warn("source scrape failed, continuing",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		logger.Info("source scraped",
			zap.String("source", src.Name()),
			zap.Int("postings", postings.Len()),
		)
		all.Append(postings.Items...)
	}

	left, err := filtering.Run(
		filtering.Deps{Logger: logger, Seen: seen},
		[]filtering.Filter{
			filtering.NewSeen(),
			filtering.NewRelevance(config.includeKeywords(), config.excludeKeywords()),
		},
		all,
	)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if left.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no new postings after filters"))
		return
	}

	rows := make([][]string, 0, left.Len())
	for _, posting := range left.Items {
		rows = append(rows, posting.ToRow().Fields())
	}
	if err := st.Append(ctx, store.TableScanned, rows); err != nil {
		logger.Fatal("recording scanned postings", zap.Error(err))
	}

	if cmd.Flag("dump").Value.String() == "true" {
		filename, err := left.DumpToTmpFile()
		if err != nil {
			logger.Warn("dumping postings to file", zap.Error(err))
		} else {
			logger.Info("dumped postings to file", zap.String("filename", filename))
		}
	}

	fmt.Printf("%s %d new postings recorded\n", color.GreenString("✓"), left.Len())
}
