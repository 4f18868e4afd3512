package cmd

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kvanticoder/jobscout/internal/fetcher"
	"github.com/kvanticoder/jobscout/internal/sources"
	"github.com/kvanticoder/jobscout/internal/store"
	"go.uber.org/zap"
)

const (
	app            = "jobscout"
	defaultDataDir = "data"
)

type Config struct {
	Query    *sources.Query            `mapstructure:"query"`
	Sources  map[string]map[string]any `mapstructure:"sources"`
	Keywords *KeywordsConfig           `mapstructure:"keywords"`
	DataDir  string                    `mapstructure:"data-dir"`
	Resume   string                    `mapstructure:"resume"`
	Fetch    *FetchConfig              `mapstructure:"fetch"`
	AI       *AIConfig                 `mapstructure:"ai"`
}

type KeywordsConfig struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

type FetchConfig struct {
	MaxRetries      int     `mapstructure:"max-retries"`
	BackoffSeconds  float64 `mapstructure:"backoff-seconds"`
	MinDelaySeconds float64 `mapstructure:"min-delay-seconds"`
	MaxDelaySeconds float64 `mapstructure:"max-delay-seconds"`
}

type AIConfig struct {
	Provider        string        `mapstructure:"provider"`
	StrongThreshold float64       `mapstructure:"strong-threshold"`
	LLMThreshold    float64       `mapstructure:"llm-threshold"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
	UseResumeCache  bool          `mapstructure:"use-resume-cache"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobscout is a cli that crawls job boards, filters the postings and rates them against your resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the pipeline commands.
	if scanCmd.CalledAs() == "" && rankCmd.CalledAs() == "" {
		return
	}

	// A .env file may carry GEMINI_API_KEY; absence is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func (c *Config) dataDir() string {
	if c == nil || c.DataDir == "" {
		return defaultDataDir
	}
	return c.DataDir
}

func (c *Config) includeKeywords() []string {
	if c == nil || c.Keywords == nil {
		return nil
	}
	return c.Keywords.Include
}

func (c *Config) excludeKeywords() []string {
	if c == nil || c.Keywords == nil {
		return nil
	}
	return c.Keywords.Exclude
}

func (c *Config) fetchPolicy() fetcher.Policy {
	policy := fetcher.DefaultPolicy()
	if c == nil || c.Fetch == nil {
		return policy
	}
	if c.Fetch.MaxRetries > 0 {
		policy.MaxRetries = c.Fetch.MaxRetries
	}
	if c.Fetch.BackoffSeconds > 0 {
		policy.Backoff = time.Duration(c.Fetch.BackoffSeconds * float64(time.Second))
	}
	if c.Fetch.MinDelaySeconds > 0 {
		policy.MinDelay = time.Duration(c.Fetch.MinDelaySeconds * float64(time.Second))
	}
	if c.Fetch.MaxDelaySeconds > 0 {
		policy.MaxDelay = time.Duration(c.Fetch.MaxDelaySeconds * float64(time.Second))
	}
	return policy
}

func openStore(c *Config, logger *zap.Logger) (*store.FileStore, error) {
	return store.NewFileStore(c.dataDir(), logger)
}
