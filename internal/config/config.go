package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML durations in time.ParseDuration syntax ("10m", "3s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Raffle struct {
		EntryFee  int64    `yaml:"entry_fee"`
		Interval  Duration `yaml:"interval"`
		StateFile string   `yaml:"state_file"`
	} `yaml:"raffle"`
	Keeper struct {
		UpkeepCron string `yaml:"upkeep_cron"`
	} `yaml:"keeper"`
	Oracle struct {
		Mode              string   `yaml:"mode"` // "local" or "beacon"
		BeaconURL         string   `yaml:"beacon_url"`
		ConfirmationDelay Duration `yaml:"confirmation_delay"`
		RequestTimeout    Duration `yaml:"request_timeout"`
		MaxRetries        int      `yaml:"max_retries"`
	} `yaml:"oracle"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"server"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ENTRY_FEE"); v != "" {
		if fee, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Raffle.EntryFee = fee
		}
	}
	if v := os.Getenv("DRAW_INTERVAL"); v != "" {
		if iv, err := time.ParseDuration(v); err == nil {
			cfg.Raffle.Interval = Duration(iv)
		}
	}
	if v := os.Getenv("UPKEEP_CRON"); v != "" {
		cfg.Keeper.UpkeepCron = v
	}
	if v := os.Getenv("ORACLE_MODE"); v != "" {
		cfg.Oracle.Mode = v
	}
	if v := os.Getenv("BEACON_URL"); v != "" {
		cfg.Oracle.BeaconURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Raffle.EntryFee == 0 {
		cfg.Raffle.EntryFee = 100
	}
	if cfg.Raffle.Interval == 0 {
		cfg.Raffle.Interval = Duration(10 * time.Minute)
	}
	if cfg.Raffle.StateFile == "" {
		cfg.Raffle.StateFile = "data/raffle_state.json"
	}
	if cfg.Keeper.UpkeepCron == "" {
		cfg.Keeper.UpkeepCron = "*/15 * * * * *"
	}
	if cfg.Oracle.Mode == "" {
		cfg.Oracle.Mode = "local"
	}
	if cfg.Oracle.ConfirmationDelay == 0 {
		cfg.Oracle.ConfirmationDelay = Duration(3 * time.Second)
	}
	if cfg.Oracle.RequestTimeout == 0 {
		cfg.Oracle.RequestTimeout = Duration(10 * time.Second)
	}
	if cfg.Oracle.MaxRetries == 0 {
		cfg.Oracle.MaxRetries = 3
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Telegram.MaxRetries == 0 {
		cfg.Telegram.MaxRetries = 3
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/rafflepool.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Raffle.EntryFee <= 0 {
		return fmt.Errorf("raffle.entry_fee must be positive")
	}
	if c.Raffle.Interval <= 0 {
		return fmt.Errorf("raffle.interval must be positive")
	}
	switch c.Oracle.Mode {
	case "local":
	case "beacon":
		if c.Oracle.BeaconURL == "" {
			return fmt.Errorf("oracle.beacon_url is required in beacon mode")
		}
	default:
		return fmt.Errorf("oracle.mode must be \"local\" or \"beacon\", got %q", c.Oracle.Mode)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}
