package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/tabscope/internal/config"
	"github.com/KaramelBytes/tabscope/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tabscope",
	Short: "tabscope: profile tabular data from the command line",
	Long: `tabscope loads CSV, TSV, XLSX, Parquet, S3 objects and SQL query results into typed
tables and profiles them: missing values, column types, numeric summaries, value counts,
correlations and group summaries. Recipes replay a whole analysis from a YAML file.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
	} else {
		cfg = c
	}

	lc := logging.Config{Level: logging.LevelWarn, Format: "text"}
	if cfg != nil {
		lc.Level = logging.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
		lc.OutputPath = cfg.LogFile
	}
	if debug {
		lc.Level = logging.LevelDebug
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	if err := logging.Init(lc); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logging setup failed: %v\n", err)
	}
	logging.With("cli").Debug("config loaded", "file", cfgFile, "loaded", cfg != nil)
}
