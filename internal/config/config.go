package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file,omitempty"`

	// Loading
	MaxRows            int      `mapstructure:"max_rows" yaml:"max_rows"`
	NullTokens         []string `mapstructure:"null_tokens" yaml:"null_tokens"`
	DecimalSeparator   string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string   `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	UnitNormalize      bool     `mapstructure:"unit_normalize" yaml:"unit_normalize"`
	CacheSize          int      `mapstructure:"cache_size" yaml:"cache_size"`
	BatchWorkers       int      `mapstructure:"batch_workers" yaml:"batch_workers"`

	// Reporting
	SampleRows int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	TopValues  int    `mapstructure:"top_values" yaml:"top_values"`
	ChartSink  string `mapstructure:"chart_sink" yaml:"chart_sink,omitempty"`

	// S3-compatible object store
	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint,omitempty"`
	S3Region    string `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	S3AccessKey string `mapstructure:"s3_access_key" yaml:"s3_access_key,omitempty"`
	S3SecretKey string `mapstructure:"s3_secret_key" yaml:"s3_secret_key,omitempty"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl" yaml:"s3_use_ssl"`

	WorkspacesDir string `mapstructure:"workspaces_dir" yaml:"workspaces_dir"`
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults()))
	for k := range defaults() {
		keys = append(keys, k)
	}
	keys = append(keys, "log_file", "chart_sink", "s3_endpoint", "s3_region", "s3_access_key", "s3_secret_key", "workspaces_dir")
	sort.Strings(keys)
	return keys
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":           "warn",
		"log_format":          "text",
		"max_rows":            100000,
		"null_tokens":         []string{"", "NA", "N/A", "NaN", "null", "None"},
		"decimal_separator":   ".",
		"thousands_separator": "",
		"unit_normalize":      true,
		"cache_size":          16,
		"batch_workers":       4,
		"sample_rows":         5,
		"top_values":          8,
		"s3_use_ssl":          true,
	}
}

// Dir returns ~/.tabscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabscope"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults. A .env file in the
// working directory is loaded into the environment first.
// Precedence: env > config file (cfgFile or ~/.tabscope/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TABSCOPE")
	v.AutomaticEnv()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	// keys without defaults still need to be bound for AutomaticEnv to see them
	for _, k := range []string{"log_file", "chart_sink", "s3_endpoint", "s3_region", "s3_access_key", "s3_secret_key", "workspaces_dir"} {
		_ = v.BindEnv(k)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; an explicit file that exists must parse
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env lists arrive as one comma-separated string
	if len(c.NullTokens) == 1 && strings.Contains(c.NullTokens[0], ",") {
		c.NullTokens = strings.Split(c.NullTokens[0], ",")
	}
	if c.WorkspacesDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.WorkspacesDir = filepath.Join(dir, "workspaces")
	}
	return &c, c.Validate()
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Global) Validate() error {
	if len([]rune(c.DecimalSeparator)) != 1 {
		return fmt.Errorf("decimal_separator must be a single character, got %q", c.DecimalSeparator)
	}
	if len([]rune(c.ThousandsSeparator)) > 1 {
		return fmt.Errorf("thousands_separator must be empty or a single character, got %q", c.ThousandsSeparator)
	}
	if c.DecimalSeparator == c.ThousandsSeparator {
		return fmt.Errorf("decimal and thousands separators must differ")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Set assigns a value by key, parsing it for the field's type.
func (c *Global) Set(key, value string) error {
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}
	switch key {
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "log_file":
		c.LogFile = value
	case "max_rows":
		return atoi(&c.MaxRows)
	case "null_tokens":
		c.NullTokens = strings.Split(value, ",")
	case "decimal_separator":
		c.DecimalSeparator = value
	case "thousands_separator":
		c.ThousandsSeparator = value
	case "unit_normalize":
		return parseBool(&c.UnitNormalize)
	case "cache_size":
		return atoi(&c.CacheSize)
	case "batch_workers":
		return atoi(&c.BatchWorkers)
	case "sample_rows":
		return atoi(&c.SampleRows)
	case "top_values":
		return atoi(&c.TopValues)
	case "chart_sink":
		c.ChartSink = value
	case "s3_endpoint":
		c.S3Endpoint = value
	case "s3_region":
		c.S3Region = value
	case "s3_access_key":
		c.S3AccessKey = value
	case "s3_secret_key":
		c.S3SecretKey = value
	case "s3_use_ssl":
		return parseBool(&c.S3UseSSL)
	case "workspaces_dir":
		c.WorkspacesDir = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Redacted returns a copy with secrets masked for display.
func (c Global) Redacted() Global {
	if c.S3SecretKey != "" {
		c.S3SecretKey = "***"
	}
	return c
}
