package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "MARKET_SCANNER_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	newsAPIKeyEnv       = "NEWS_API_KEY"
	aiProviderEnv       = "AI_PROVIDER"
	aiModelEnv          = "AI_MODEL"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
	anthropicAPIKeyEnv  = "ANTHROPIC_API_KEY"
	openAIAPIKeyEnv     = "OPENAI_API_KEY"
	alphaVantageKeyEnv  = "ALPHA_VANTAGE_API_KEY"
	smtpHostEnv         = "SMTP_HOST"
	smtpPortEnv         = "SMTP_PORT"
	smtpUserEnv         = "SMTP_USER"
	emailPasswordEnv    = "EMAIL_PASSWORD"
	recipientEmailsEnv  = "RECIPIENT_EMAILS"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	defaultEnvFile      = ".env"
	defaultSMTPPort     = 465
	defaultNewsEndpoint = "https://newsapi.org/v2/everything"
)

// AI provider names accepted in ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig  `yaml:"logging"`
	Database   DatabaseConfig `yaml:"database"`
	News       NewsConfig     `yaml:"news"`
	AI         AIConfig       `yaml:"ai"`
	Prices     PricesConfig   `yaml:"prices"`
	SMTP       SMTPConfig     `yaml:"smtp"`
	Recipients []string       `yaml:"recipients"`
	Report     ReportConfig   `yaml:"report"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes where the seen set lives. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NewsConfig groups the query and the configured sources.
type NewsConfig struct {
	Keywords []string       `yaml:"keywords"`
	Window   time.Duration  `yaml:"window"`
	Limit    int            `yaml:"limit"`
	Retry    RetryConfig    `yaml:"retry"`
	Sources  []SourceConfig `yaml:"sources"`
}

// RetryConfig controls news fetch retries.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// SourceConfig describes a single news source with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	Endpoint string            `yaml:"endpoint"`
	APIKey   string            `yaml:"apiKey"`
	Feeds    []FeedConfig      `yaml:"feeds"`
	Options  map[string]string `yaml:"options"`
}

// FeedConfig holds a concrete feed URL for RSS sources.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AIConfig picks the analyst backend.
type AIConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

// PricesConfig defines how to contact Alpha Vantage.
type PricesConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"apiKey"`
	Window            int           `yaml:"window"`
	Workers           int           `yaml:"workers"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// SMTPConfig wires all data required to send mail. Port 465 means implicit TLS.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	FromName string        `yaml:"fromName"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ReportConfig controls the artifact and the dry-run sink.
type ReportConfig struct {
	Title      string `yaml:"title"`
	DryRun     bool   `yaml:"dryRun"`
	OutputPath string `yaml:"outputPath"`
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing default file is fine.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads YAML configuration (if present) over defaults and applies environment overrides.
// An empty path falls back to MARKET_SCANNER_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.fillDerived()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		for i := range c.News.Sources {
			if c.News.Sources[i].Scanner == "newsapi" {
				c.News.Sources[i].APIKey = v
			}
		}
	}

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.AI.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.AI.Model = v
	}
	keyEnv := map[string]string{
		ProviderGemini: geminiAPIKeyEnv,
		ProviderClaude: anthropicAPIKeyEnv,
		ProviderOpenAI: openAIAPIKeyEnv,
	}[c.AI.Provider]
	if keyEnv != "" {
		if v := os.Getenv(keyEnv); v != "" {
			c.AI.APIKey = v
		}
	}

	if v := os.Getenv(alphaVantageKeyEnv); v != "" {
		c.Prices.APIKey = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", smtpPortEnv, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.SMTP.Password = v
	}

	if v := os.Getenv(recipientEmailsEnv); v != "" {
		c.Recipients = splitList(v)
	}
	return nil
}

func (c *Config) fillDerived() {
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = defaultSMTPPort
	}
	for i := range c.News.Sources {
		if c.News.Sources[i].Scanner == "newsapi" && c.News.Sources[i].Endpoint == "" {
			c.News.Sources[i].Endpoint = defaultNewsEndpoint
		}
	}
}

// Validate reports every missing setting at once. SMTP credentials are only
// required when the report is actually mailed.
func (c Config) Validate() error {
	var errs []error

	if len(c.News.Sources) == 0 {
		errs = append(errs, errors.New("news: no sources configured"))
	}
	for _, src := range c.News.Sources {
		switch src.Scanner {
		case "newsapi":
			if src.APIKey == "" {
				errs = append(errs, fmt.Errorf("news source %s: %s is not set", src.Name, newsAPIKeyEnv))
			}
		case "rss":
			if len(src.Feeds) == 0 {
				errs = append(errs, fmt.Errorf("news source %s: no feeds", src.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("news source %s: unknown scanner %q", src.Name, src.Scanner))
		}
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderClaude, ProviderOpenAI:
		if c.AI.APIKey == "" {
			errs = append(errs, fmt.Errorf("ai: api key for %s is not set", c.AI.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("ai: unknown provider %q", c.AI.Provider))
	}

	if c.Prices.Enabled && c.Prices.APIKey == "" {
		errs = append(errs, fmt.Errorf("prices: %s is not set", alphaVantageKeyEnv))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database: dsn is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q", c.Database.Driver))
	}

	if c.Report.DryRun {
		if c.Report.OutputPath == "" {
			errs = append(errs, errors.New("report: dry run needs an output path"))
		}
	} else {
		if c.SMTP.Host == "" {
			errs = append(errs, fmt.Errorf("smtp: %s is not set", smtpHostEnv))
		}
		if c.SMTP.Username == "" || c.SMTP.Password == "" {
			errs = append(errs, fmt.Errorf("smtp: %s and %s are required", smtpUserEnv, emailPasswordEnv))
		}
		if len(c.Recipients) == 0 {
			errs = append(errs, fmt.Errorf("recipients: %s is empty", recipientEmailsEnv))
		}
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "processed_articles.db"},
		News: NewsConfig{
			Keywords: []string{"stock market", "corporate earnings", "market trends", "finance"},
			Window:   24 * time.Hour,
			Limit:    100,
			Retry:    RetryConfig{Attempts: 3, Backoff: 2 * time.Second},
			Sources: []SourceConfig{
				{
					Name:     "newsapi",
					Scanner:  "newsapi",
					Endpoint: defaultNewsEndpoint,
					Options:  map[string]string{"language": "en", "sortBy": "publishedAt"},
				},
			},
		},
		AI: AIConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
		Prices: PricesConfig{
			Enabled:           true,
			Endpoint:          "https://www.alphavantage.co/query",
			Window:            30,
			Workers:           2,
			Timeout:           20 * time.Second,
			RequestsPerMinute: 5,
		},
		SMTP: SMTPConfig{
			Port:     defaultSMTPPort,
			FromName: "AI Market Briefing",
			Timeout:  30 * time.Second,
		},
		Report: ReportConfig{
			Title:      "Daily AI Market Briefing",
			OutputPath: "report.html",
		},
	}
}
