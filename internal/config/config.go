package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigName is the config file base name looked up in the project directory
	ConfigName = "sitemapkit"
	// EnvPrefix prefixes every environment override (SITEMAPKIT_BATCHSIZE, ...)
	EnvPrefix = "SITEMAPKIT"
	// LegacySkipSubmodulesEnv is honoured when set to "1"
	LegacySkipSubmodulesEnv = "SKIP_SUBMODULES"
)

// Config represents the complete sitemapkit configuration
type Config struct {
	ProjectDir string `json:"projectDir" yaml:"projectDir" toml:"projectDir" mapstructure:"projectDir"`

	Root          string `json:"root" yaml:"root" toml:"root" mapstructure:"root"`
	Output        string `json:"output" yaml:"output" toml:"output" mapstructure:"output"`
	RepoRoot      string `json:"repoRoot" yaml:"repoRoot" toml:"repoRoot" mapstructure:"repoRoot"`
	BatchSize     int    `json:"batchSize" yaml:"batchSize" toml:"batchSize" mapstructure:"batchSize"`
	Concurrency   int    `json:"concurrency" yaml:"concurrency" toml:"concurrency" mapstructure:"concurrency"`
	ProgressEvery int    `json:"progressEvery" yaml:"progressEvery" toml:"progressEvery" mapstructure:"progressEvery"`

	History    HistoryConfig    `json:"history" yaml:"history" toml:"history" mapstructure:"history"`
	Crawl      CrawlConfig      `json:"crawl" yaml:"crawl" toml:"crawl" mapstructure:"crawl"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
	Submodules SubmodulesConfig `json:"submodules" yaml:"submodules" toml:"submodules" mapstructure:"submodules"`
}

// HistoryConfig controls version-control history lookups
type HistoryConfig struct {
	TimeoutMs     int         `json:"timeoutMs" yaml:"timeoutMs" toml:"timeoutMs" mapstructure:"timeoutMs"`
	RatePerSecond float64     `json:"ratePerSecond" yaml:"ratePerSecond" toml:"ratePerSecond" mapstructure:"ratePerSecond"`
	Cache         CacheConfig `json:"cache" yaml:"cache" toml:"cache" mapstructure:"cache"`
}

// CacheConfig controls the persistent history cache
type CacheConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	Path          string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
	MemoryEntries int    `json:"memoryEntries" yaml:"memoryEntries" toml:"memoryEntries" mapstructure:"memoryEntries"`
}

// CrawlConfig controls the tree walk
type CrawlConfig struct {
	ExcludeDirs    []string `json:"excludeDirs" yaml:"excludeDirs" toml:"excludeDirs" mapstructure:"excludeDirs"`
	FollowSymlinks bool     `json:"followSymlinks" yaml:"followSymlinks" toml:"followSymlinks" mapstructure:"followSymlinks"`
	RespectRobots  bool     `json:"respectRobots" yaml:"respectRobots" toml:"respectRobots" mapstructure:"respectRobots"`
	RespectNoindex bool     `json:"respectNoindex" yaml:"respectNoindex" toml:"respectNoindex" mapstructure:"respectNoindex"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
}

// SubmodulesConfig lists the external projects built before the site is crawled
type SubmodulesConfig struct {
	Skip    bool              `json:"skip" yaml:"skip" toml:"skip" mapstructure:"skip"`
	Dir     string            `json:"dir" yaml:"dir" toml:"dir" mapstructure:"dir"`
	Modules []SubmoduleConfig `json:"modules" yaml:"modules" toml:"modules" mapstructure:"modules"`
}

// SubmoduleConfig is one external project and its shell build command
type SubmoduleConfig struct {
	Name    string `json:"name" yaml:"name" toml:"name" mapstructure:"name"`
	Command string `json:"command" yaml:"command" toml:"command" mapstructure:"command"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ProjectDir:    ".",
		Root:          "public",
		Output:        ".sitemap-base.json",
		RepoRoot:      ".",
		BatchSize:     20,
		Concurrency:   40,
		ProgressEvery: 5,
		History: HistoryConfig{
			TimeoutMs:     5000,
			RatePerSecond: 0,
			Cache: CacheConfig{
				Enabled:       false,
				Path:          filepath.Join(".sitemapkit", "history.db"),
				MemoryEntries: 4096,
			},
		},
		Crawl: CrawlConfig{
			ExcludeDirs: []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Submodules: SubmodulesConfig{
			Dir:     "external",
			Modules: []SubmoduleConfig{},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("root", d.Root)
	v.SetDefault("output", d.Output)
	v.SetDefault("repoRoot", d.RepoRoot)
	v.SetDefault("batchSize", d.BatchSize)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("progressEvery", d.ProgressEvery)
	v.SetDefault("history.timeoutMs", d.History.TimeoutMs)
	v.SetDefault("history.ratePerSecond", d.History.RatePerSecond)
	v.SetDefault("history.cache.enabled", d.History.Cache.Enabled)
	v.SetDefault("history.cache.path", d.History.Cache.Path)
	v.SetDefault("history.cache.memoryEntries", d.History.Cache.MemoryEntries)
	v.SetDefault("crawl.excludeDirs", d.Crawl.ExcludeDirs)
	v.SetDefault("crawl.followSymlinks", d.Crawl.FollowSymlinks)
	v.SetDefault("crawl.respectRobots", d.Crawl.RespectRobots)
	v.SetDefault("crawl.respectNoindex", d.Crawl.RespectNoindex)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("submodules.skip", d.Submodules.Skip)
	v.SetDefault("submodules.dir", d.Submodules.Dir)
	v.SetDefault("submodules.modules", d.Submodules.Modules)
}

// Load resolves the configuration for projectDir.
//
// Precedence: environment (SITEMAPKIT_*, SKIP_SUBMODULES) > config file > defaults.
// configFile may be empty, in which case sitemapkit.{yaml,json,toml} is looked up
// in projectDir and its absence is not an error. A .env file in projectDir is
// loaded into the process environment first; variables already set win.
func Load(projectDir, configFile string) (*Config, error) {
	if projectDir == "" {
		projectDir = "."
	}
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, &ConfigError{Field: "projectDir", Message: err.Error()}
	}

	if err := godotenv.Load(filepath.Join(absDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Field: ".env", Message: err.Error()}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(absDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	if os.Getenv(LegacySkipSubmodulesEnv) == "1" {
		v.Set("submodules.skip", true)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	cfg.ProjectDir = absDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return &ConfigError{Field: "root", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.Output) == "" {
		return &ConfigError{Field: "output", Message: "must not be empty"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Field: "batchSize", Message: fmt.Sprintf("must be >= 1, got %d", c.BatchSize)}
	}
	if c.Concurrency < 1 {
		return &ConfigError{Field: "concurrency", Message: fmt.Sprintf("must be >= 1, got %d", c.Concurrency)}
	}
	if c.ProgressEvery < 1 {
		return &ConfigError{Field: "progressEvery", Message: fmt.Sprintf("must be >= 1, got %d", c.ProgressEvery)}
	}
	if c.History.TimeoutMs < 0 {
		return &ConfigError{Field: "history.timeoutMs", Message: "must not be negative"}
	}
	if c.History.RatePerSecond < 0 {
		return &ConfigError{Field: "history.ratePerSecond", Message: "must not be negative"}
	}
	if c.History.Cache.Enabled && strings.TrimSpace(c.History.Cache.Path) == "" {
		return &ConfigError{Field: "history.cache.path", Message: "required when the cache is enabled"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("must be human or json, got %q", c.Logging.Format)}
	}
	for i, m := range c.Submodules.Modules {
		if strings.TrimSpace(m.Name) == "" {
			return &ConfigError{Field: fmt.Sprintf("submodules.modules[%d].name", i), Message: "must not be empty"}
		}
	}
	return nil
}

// HistoryTimeout returns the per-lookup timeout; zero means no timeout.
func (c *Config) HistoryTimeout() time.Duration {
	return time.Duration(c.History.TimeoutMs) * time.Millisecond
}

// RootPath returns the crawl root resolved against the project directory.
func (c *Config) RootPath() string { return c.resolve(c.Root) }

// OutputPath returns the output file resolved against the project directory.
func (c *Config) OutputPath() string { return c.resolve(c.Output) }

// RepoRootPath returns the git work tree resolved against the project directory.
func (c *Config) RepoRootPath() string { return c.resolve(c.RepoRoot) }

// CachePath returns the history cache database path.
func (c *Config) CachePath() string { return c.resolve(c.History.Cache.Path) }

// SubmodulesPath returns the directory holding external submodules.
func (c *Config) SubmodulesPath() string { return c.resolve(c.Submodules.Dir) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	base := c.ProjectDir
	if base == "" {
		base = "."
	}
	return filepath.Clean(filepath.Join(base, p))
}

// Encode renders the configuration as json, yaml or toml.
func (c *Config) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, &ConfigError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
