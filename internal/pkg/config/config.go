package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Settlement SettlementConfig `yaml:"settlement"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Health     HealthConfig     `yaml:"health"`
	Sources    []models.Source  `yaml:"sources"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"` // when enabled, rotation state lives in Redis instead of process memory
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ScraperConfig struct {
	UserAgent        string        `yaml:"user_agent"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	SelectorTimeout  time.Duration `yaml:"selector_timeout"`
	PoolSize         int           `yaml:"pool_size"`
	MaxAttempts      int           `yaml:"max_attempts"`       // distinct sources tried per sport per job cycle
	GoodEnoughCount  int           `yaml:"good_enough_count"`  // stop rotating once a source returns this many records
	MinRequestDelay  time.Duration `yaml:"min_request_delay"`  // baseline per-domain pacing interval
	DumpDir          string        `yaml:"dump_dir"`           // where parse-failure HTML/screenshots are saved
	FuzzyThreshold   float64       `yaml:"fuzzy_threshold"`    // team name similarity threshold
	OddsAPIBaseURL   string        `yaml:"odds_api_base_url"`  // optional non-browser odds fallback
	OddsAPIKey       string        `yaml:"odds_api_key"`
}

type JobsConfig struct {
	Sports             []string      `yaml:"sports"`
	FixturesInterval   time.Duration `yaml:"fixtures_interval"`
	OddsInterval       time.Duration `yaml:"odds_interval"`
	LiveScoresInterval time.Duration `yaml:"live_scores_interval"`
	InterSportDelay    time.Duration `yaml:"inter_sport_delay"`
}

type SettlementConfig struct {
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

type AlertsConfig struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	}
	if c.Scraper.NavigateTimeout <= 0 {
		c.Scraper.NavigateTimeout = 30 * time.Second
	}
	if c.Scraper.SelectorTimeout <= 0 {
		c.Scraper.SelectorTimeout = 10 * time.Second
	}
	if c.Scraper.PoolSize <= 0 {
		c.Scraper.PoolSize = 3
	}
	if c.Scraper.MaxAttempts <= 0 {
		c.Scraper.MaxAttempts = 3
	}
	if c.Scraper.GoodEnoughCount <= 0 {
		c.Scraper.GoodEnoughCount = 10
	}
	if c.Scraper.MinRequestDelay <= 0 {
		c.Scraper.MinRequestDelay = 2 * time.Second
	}
	if c.Scraper.FuzzyThreshold <= 0 {
		c.Scraper.FuzzyThreshold = 0.72
	}
	if c.Jobs.InterSportDelay <= 0 {
		c.Jobs.InterSportDelay = 5 * time.Second
	}
	if c.Jobs.FixturesInterval <= 0 {
		c.Jobs.FixturesInterval = time.Hour
	}
	if c.Jobs.OddsInterval <= 0 {
		c.Jobs.OddsInterval = 15 * time.Minute
	}
	if c.Jobs.LiveScoresInterval <= 0 {
		c.Jobs.LiveScoresInterval = time.Minute
	}
	if c.Settlement.Queue == "" {
		c.Settlement.Queue = "settlement.event_finished"
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
}

// EnabledSources returns the configured sources that are enabled, in config order.
func (c *Config) EnabledSources() []models.Source {
	out := make([]models.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
