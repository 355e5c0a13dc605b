package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"policyrag/internal/config"
)

// Version is overridden at build time with -ldflags "-X policyrag/internal/cli.Version=...".
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "policyrag",
	Short: "policyrag - question answering over versioned policy documents",
	Long: `policyrag answers natural-language questions against a small corpus of
policy documents. Answers cite their sources and carry a confidence score.
When several versions of the same policy disagree, the most recent one wins
and the conflict is reported alongside the answer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "policyrag %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, then ~/.config/policyrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("docs", "", "documents directory")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable logs")

	// Bind flags to viper
	_ = viper.BindPFlag("documents.dir", rootCmd.PersistentFlags().Lookup("docs"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads ENV variables matching POLICYRAG_*, e.g. POLICYRAG_RETRIEVAL_TOP_K.
func initConfig() {
	viper.SetEnvPrefix("POLICYRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig loads the config file and applies env and flag overrides.
func loadConfig() (*config.AppConfig, string, error) {
	var (
		cfg  *config.AppConfig
		path = cfgFile
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", path)
	}
	return cfg, path, nil
}

// applyOverrides copies every key set through env or flags onto cfg.
func applyOverrides(cfg *config.AppConfig, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	float := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	str("documents.dir", &cfg.Documents.Dir)
	str("documents.pattern", &cfg.Documents.Pattern)
	boolean("documents.watch", &cfg.Documents.Watch)
	boolean("documents.dedupe_ids", &cfg.Documents.DedupeIDs)

	integer("retrieval.top_k", &cfg.Retrieval.TopK)
	float("retrieval.relevance_floor", &cfg.Retrieval.RelevanceFloor)
	integer("retrieval.excerpt_length", &cfg.Retrieval.ExcerptLength)
	float("retrieval.min_confidence", &cfg.Retrieval.MinConfidence)

	str("server.addr", &cfg.Server.Addr)
	str("server.grpc_health_addr", &cfg.Server.GRPCHealthAddr)
	float("server.rate_limit_rps", &cfg.Server.RateLimitRPS)
	integer("server.rate_limit_burst", &cfg.Server.RateLimitBurst)

	boolean("cache.enabled", &cfg.Cache.Enabled)
	integer("cache.ttl_secs", &cfg.Cache.TTLSecs)

	str("log.level", &cfg.Log.Level)
	boolean("log.pretty", &cfg.Log.Pretty)

	str("client.url", &cfg.Client.URL)
	str("client.auth_header", &cfg.Client.AuthHeader)
	integer("client.max_retries", &cfg.Client.MaxRetries)
	integer("client.timeout_secs", &cfg.Client.TimeoutSecs)
}
