package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tunables are the values the dedupe and ledger core is built with.
type Tunables struct {
	PriceThreshold  float64 `yaml:"price_threshold"`
	RetentionWindow int     `yaml:"retention_window"`
	NewsFetchLimit  int     `yaml:"news_fetch_limit"`
	TweetFetchLimit int     `yaml:"tweet_fetch_limit"`
	SeenSetMaxLines int     `yaml:"seen_set_max_lines"` // 0 keeps every line
}

type AssetConfig struct {
	ID     string `yaml:"id"` // CoinGecko id
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

type SourcesConfig struct {
	NewsURL   string        `yaml:"news_url"`
	SocialURL string        `yaml:"social_url"`
	PriceURL  string        `yaml:"price_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type PriceConfig struct {
	Dated             bool   `yaml:"dated"`
	RecordFailedFetch bool   `yaml:"record_failed_fetch"`
	Timezone          string `yaml:"timezone"`
}

type StoreConfig struct {
	Type     string `yaml:"type"` // "file", "memory", "valkey" or "sqlite"
	Dir      string `yaml:"dir"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`
}

type ChartConfig struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

type EmailConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	To       string        `yaml:"to"`
	Subject  string        `yaml:"subject"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Webhook struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Provider string `yaml:"provider"` // "generic" (default) or "discord"

	PostInterval time.Duration `yaml:"post_interval"`
}

type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	Cron     string        `yaml:"cron"`
}

type MetricsConfig struct {
	Listen      string `yaml:"listen"`
	Pushgateway string `yaml:"pushgateway"`
}

type Config struct {
	Tunables `yaml:",inline"`

	Asset    AssetConfig    `yaml:"asset"`
	Sources  SourcesConfig  `yaml:"sources"`
	Price    PriceConfig    `yaml:"price"`
	Store    StoreConfig    `yaml:"store"`
	Chart    ChartConfig    `yaml:"chart"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
	Webhooks []Webhook      `yaml:"webhooks"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Tunables: Tunables{
			PriceThreshold:  1.00,
			RetentionWindow: 20,
			NewsFetchLimit:  10,
			TweetFetchLimit: 3,
		},
		Asset: AssetConfig{
			ID:     "nexo",
			Symbol: "NEXO",
			Name:   "Nexo",
		},
		Sources: SourcesConfig{
			NewsURL:   "https://news.google.com/rss/search?q=Nexo+crypto&hl=en-US&gl=US&ceid=US:en",
			SocialURL: "https://nitter.net/search?f=tweets&q=Nexo+crypto&since=&until=&near=",
			PriceURL:  "https://api.coingecko.com/api/v3",
			Timeout:   10 * time.Second,
			UserAgent: "nexo-alert/1.0",
		},
		Price: PriceConfig{
			Timezone: "UTC",
		},
		Store: StoreConfig{
			Type: "file",
			Dir:  ".",
		},
		Chart: ChartConfig{
			Path:   "chart.png",
			Width:  600,
			Height: 400,
		},
		Email: EmailConfig{
			Host:    "smtp.gmail.com",
			Port:    587,
			Subject: "[Nexo Alert] News/Price/Twitter",
			Timeout: 30 * time.Second,
		},
		Schedule: ScheduleConfig{
			Interval: time.Hour,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults, applies secrets from
// the environment and validates the result. A missing file is not an error.
// Telegram and email switch on by themselves when their credentials are in
// the environment, unless the file sets enabled explicitly.
func Load(path string) (*Config, error) {
	c := Default()
	var set toggles

	if path != "" {
		if err := loadYaml(path, c); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadYaml(path, &set); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := applyEnvironment(c, os.Getenv); err != nil {
		return nil, err
	}

	if set.Telegram.Enabled == nil && c.Telegram.Token != "" && c.Telegram.ChatID != 0 {
		c.Telegram.Enabled = true
	}
	if set.Email.Enabled == nil && c.Email.Username != "" && c.Email.Password != "" {
		c.Email.Enabled = true
	}

	for i := range c.Webhooks {
		if c.Webhooks[i].Provider == "" {
			c.Webhooks[i].Provider = "generic"
		}
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.Username
	}
	if c.Email.To == "" {
		c.Email.To = c.Email.Username
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// toggles records which enabled flags the file spelled out.
type toggles struct {
	Telegram struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"telegram"`
	Email struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"email"`
}

func applyEnvironment(c *Config, getenv func(string) string) error {
	if v := getenv("EMAIL_USER"); v != "" {
		c.Email.Username = v
	}
	if v := getenv("EMAIL_PASS"); v != "" {
		c.Email.Password = v
	}
	if v := getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	if v := getenv("VALKEY_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.PriceThreshold < 0 {
		return fmt.Errorf("price_threshold must not be negative")
	}
	if c.RetentionWindow < 0 {
		return fmt.Errorf("retention_window must not be negative")
	}
	if c.NewsFetchLimit <= 0 || c.TweetFetchLimit <= 0 {
		return fmt.Errorf("news_fetch_limit and tweet_fetch_limit must be positive")
	}
	if c.SeenSetMaxLines < 0 {
		return fmt.Errorf("seen_set_max_lines must not be negative")
	}
	if c.Asset.ID == "" {
		return fmt.Errorf("asset.id is required")
	}
	if _, err := time.LoadLocation(c.Price.Timezone); err != nil {
		return fmt.Errorf("invalid price.timezone %q: %w", c.Price.Timezone, err)
	}

	switch c.Store.Type {
	case "file", "memory":
	case "valkey":
		if c.Store.Address == "" {
			return fmt.Errorf("store.address is required for valkey")
		}
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram requires TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
	}
	if c.Email.Enabled && (c.Email.Username == "" || c.Email.Password == "" || c.Email.Host == "") {
		return fmt.Errorf("email requires host, EMAIL_USER and EMAIL_PASS")
	}
	for _, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook %q has no url", wh.Name)
		}
	}
	if !c.Telegram.Enabled && !c.Email.Enabled && len(c.Webhooks) == 0 {
		return fmt.Errorf("no notification transport enabled: set TELEGRAM_TOKEN and TELEGRAM_CHAT_ID, EMAIL_USER and EMAIL_PASS, or a webhook")
	}
	if c.Schedule.Cron == "" && c.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule needs an interval or a cron expression")
	}
	return nil
}

func loadYaml(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
