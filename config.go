package pomod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AppName        = "pomod"
	configFileName = "config.yaml"
	historyDBName  = "history.db"
	socketFileName = "pomodoro.sock"
)

type Config struct {
	Focus             time.Duration `yaml:"focus" env:"POMOD_FOCUS"`
	ShortBreak        time.Duration `yaml:"short_break" env:"POMOD_SHORT_BREAK"`
	LongBreak         time.Duration `yaml:"long_break" env:"POMOD_LONG_BREAK"`
	LongBreakInterval uint          `yaml:"long_break_interval" env:"POMOD_LONG_BREAK_INTERVAL"`
	Notify            bool          `yaml:"notify" env:"POMOD_NOTIFY"`

	SocketPath string `yaml:"socket" env:"POMOD_SOCKET"`
	LogLevel   string `yaml:"log_level" env:"POMOD_LOG_LEVEL"`

	History          bool          `yaml:"history" env:"POMOD_HISTORY"`
	HistoryDB        string        `yaml:"history_db" env:"POMOD_HISTORY_DB"`
	HistoryRetention time.Duration `yaml:"history_retention" env:"POMOD_HISTORY_RETENTION"`

	// FeedAddr enables the websocket status feed when set, e.g. 127.0.0.1:7879.
	FeedAddr string `yaml:"feed_addr" env:"POMOD_FEED_ADDR"`

	DiscordWebhookID    string `yaml:"discord_webhook_id" env:"POMOD_DISCORD_WEBHOOK_ID"`
	DiscordWebhookToken string `yaml:"discord_webhook_token" env:"POMOD_DISCORD_WEBHOOK_TOKEN"`
}

func DefaultConfig() Config {
	return Config{
		Focus:             25 * time.Minute,
		ShortBreak:        5 * time.Minute,
		LongBreak:         25 * time.Minute,
		LongBreakInterval: 4,
		Notify:            true,
		SocketPath:        filepath.Join(os.TempDir(), socketFileName),
		LogLevel:          "info",
		History:           true,
		HistoryDB:         filepath.Join(appDir(), historyDBName),
		HistoryRetention:  30 * 24 * time.Hour,
	}
}

// LoadConfig layers defaults, .env, the YAML file at path and POMOD_*
// variables, in that order. An empty path reads the default config file,
// which may be absent.
func LoadConfig(path string) (Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := loadYAML(path, &cfg); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := parseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"focus", c.Focus},
		{"short_break", c.ShortBreak},
		{"long_break", c.LongBreak},
	}
	for _, d := range durations {
		if d.d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %s", d.name, d.d)
		}
	}
	if c.LongBreakInterval < 1 {
		return fmt.Errorf("long_break_interval must be at least 1")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("required config: socket")
	}
	if c.History && c.HistoryDB == "" {
		return fmt.Errorf("required config: history_db (or disable history)")
	}
	if (c.DiscordWebhookID == "") != (c.DiscordWebhookToken == "") {
		return fmt.Errorf("discord_webhook_id and discord_webhook_token must be set together")
	}
	return nil
}

func (c Config) DiscordEnabled() bool {
	return c.DiscordWebhookID != "" && c.DiscordWebhookToken != ""
}

func DefaultConfigPath() string {
	return filepath.Join(appDir(), configFileName)
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func appDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppName)
}
