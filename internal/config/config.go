package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendAPI  = "api"
	BackendBird = "bird"
)

type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	X       XConfig       `mapstructure:"x"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Source  SourceConfig  `mapstructure:"source"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Summary SummaryConfig `mapstructure:"summary"`
}

type XConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	APISecret         string  `mapstructure:"api_secret"`
	AccessToken       string  `mapstructure:"access_token"`
	AccessTokenSecret string  `mapstructure:"access_token_secret"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type NotionConfig struct {
	Token             string        `mapstructure:"token"`
	DatabaseID        string        `mapstructure:"database_id"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Properties        PropertyNames `mapstructure:"properties"`
}

// PropertyNames maps bookmark fields to Notion database property names.
type PropertyNames struct {
	Title      string `mapstructure:"title"`
	URL        string `mapstructure:"url"`
	Author     string `mapstructure:"author"`
	Date       string `mapstructure:"date"`
	Engagement string `mapstructure:"engagement"`
	Summary    string `mapstructure:"summary"`
}

type SourceConfig struct {
	Backend string `mapstructure:"backend"` // api, bird
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

type SummaryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// requiredEnv lists the credentials a sync cannot start without, keyed by
// environment variable name.
var requiredEnv = []struct {
	env  string
	key  string
	xAPI bool
}{
	{env: "X_API_KEY", key: "x.api_key", xAPI: true},
	{env: "X_API_SECRET", key: "x.api_secret", xAPI: true},
	{env: "X_ACCESS_TOKEN", key: "x.access_token", xAPI: true},
	{env: "X_ACCESS_TOKEN_SECRET", key: "x.access_token_secret", xAPI: true},
	{env: "NOTION_TOKEN", key: "notion.token"},
	{env: "NOTION_DATABASE_ID", key: "notion.database_id"},
}

// Load reads configuration from defaults, an optional config.yaml in the
// data directory, a .env file in the working directory and the environment.
// A non-empty dataDir overrides every other data_dir source.
func Load(dataDir string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving home directory")
	}

	// Existing environment wins over .env; a missing file is fine.
	_ = godotenv.Load()

	defaultDataDir := filepath.Join(homeDir, ".bookmarksync")

	v := viper.New()
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("x.base_url", "https://api.twitter.com")
	v.SetDefault("x.requests_per_second", 1.0)
	v.SetDefault("notion.requests_per_second", 3.0)
	v.SetDefault("notion.properties.title", "Title")
	v.SetDefault("notion.properties.url", "URL")
	v.SetDefault("notion.properties.author", "Author")
	v.SetDefault("notion.properties.date", "Date")
	v.SetDefault("notion.properties.engagement", "Engagement")
	v.SetDefault("notion.properties.summary", "Summary")
	v.SetDefault("source.backend", BackendAPI)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("summary.enabled", false)

	// Environment variable overrides
	v.SetEnvPrefix("BOOKMARKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, r := range requiredEnv {
		_ = v.BindEnv(r.key, r.env)
	}
	_ = v.BindEnv("data_dir", "BOOKMARKSYNC_DATA_DIR")
	_ = v.BindEnv("source.backend", "BOOKMARKSYNC_SOURCE_BACKEND")
	_ = v.BindEnv("summary.enabled", "BOOKMARKSYNC_SUMMARY_ENABLED")
	_ = v.BindEnv("llm.provider", "BOOKMARKSYNC_LLM_PROVIDER")
	_ = v.BindEnv("llm.model", "BOOKMARKSYNC_LLM_MODEL")
	_ = v.BindEnv("llm.base_url", "BOOKMARKSYNC_LLM_BASE_URL")

	if dataDir != "" {
		v.Set("data_dir", dataDir)
	}

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("data_dir"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating data directory %s", cfg.DataDir)
	}

	return &cfg, nil
}

// MissingConfigError lists required environment variables that are unset.
type MissingConfigError struct {
	Missing []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every credential the configured backends need is
// present. All missing names are reported together.
func (c *Config) Validate() error {
	values := map[string]string{
		"x.api_key":             c.X.APIKey,
		"x.api_secret":          c.X.APISecret,
		"x.access_token":        c.X.AccessToken,
		"x.access_token_secret": c.X.AccessTokenSecret,
		"notion.token":          c.Notion.Token,
		"notion.database_id":    c.Notion.DatabaseID,
	}

	var missing []string
	for _, r := range requiredEnv {
		if r.xAPI && c.Source.Backend == BackendBird {
			continue
		}
		if strings.TrimSpace(values[r.key]) == "" {
			missing = append(missing, r.env)
		}
	}

	switch c.Source.Backend {
	case BackendAPI, BackendBird:
	default:
		return errors.Newf("unknown source backend %q (want %q or %q)", c.Source.Backend, BackendAPI, BackendBird)
	}

	if len(missing) > 0 {
		return errors.WithHint(&MissingConfigError{Missing: missing},
			"set them in the environment or in a .env file in the working directory")
	}
	return nil
}

func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}
