package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g. PAPER_ACCOUNT_BALANCE.
const EnvPrefix = "PAPER"

// Config represents the complete paper-trading configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account" mapstructure:"account"`
	Market  MarketConfig  `json:"market" yaml:"market" mapstructure:"market"`
	Feed    FeedConfig    `json:"feed" yaml:"feed" mapstructure:"feed"`
	State   StateConfig   `json:"state" yaml:"state" mapstructure:"state"`
	Journal JournalConfig `json:"journal" yaml:"journal" mapstructure:"journal"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// AccountConfig sets the starting wallet of a new session
type AccountConfig struct {
	Balance float64 `json:"balance" yaml:"balance" mapstructure:"balance" validate:"gt=0"`
}

// MarketConfig drives the simulated price walk
type MarketConfig struct {
	Volatility   float64       `json:"volatility" yaml:"volatility" mapstructure:"volatility" validate:"gt=0,lt=1"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" mapstructure:"tick_interval" validate:"gt=0"`
	Seed         int64         `json:"seed,omitempty" yaml:"seed,omitempty" mapstructure:"seed"` // 0 seeds from the clock
}

// FeedConfig points at an external quote source. An empty URL disables it.
type FeedConfig struct {
	URL          string        `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url" validate:"omitempty,url"`
	Token        string        `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	SyncInterval time.Duration `json:"sync_interval" yaml:"sync_interval" mapstructure:"sync_interval" validate:"gte=0"`
	MinInterval  time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval" validate:"gte=0"`

	// CommentaryURL serves /insight?symbol= and /news for the API. Empty
	// means the static fallback texts.
	CommentaryURL string `json:"commentary_url,omitempty" yaml:"commentary_url,omitempty" mapstructure:"commentary_url" validate:"omitempty,url"`
}

// Enabled reports whether quotes should be fetched.
func (f FeedConfig) Enabled() bool { return f.URL != "" }

// StateConfig locates the saved session document
type StateConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" mapstructure:"type" validate:"oneof=none csv sqlite"`
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty" mapstructure:"orders_file"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty" mapstructure:"equity_file"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`
}

// ServerConfig controls the HTTP API started by "run"
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LoggingConfig selects level, format and an optional rotated log file
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Format     string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=json text"`
	File       string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty" mapstructure:"max_age_days" validate:"gte=0"`
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads configuration from path, or from config.yaml in the working
// directory when path is empty. Defaults fill anything the file leaves out
// and PAPER_* environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file; defaults and environment only
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("account.balance", d.Account.Balance)

	v.SetDefault("market.volatility", d.Market.Volatility)
	v.SetDefault("market.tick_interval", d.Market.TickInterval)
	v.SetDefault("market.seed", d.Market.Seed)

	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.token", d.Feed.Token)
	v.SetDefault("feed.timeout", d.Feed.Timeout)
	v.SetDefault("feed.sync_interval", d.Feed.SyncInterval)
	v.SetDefault("feed.min_interval", d.Feed.MinInterval)
	v.SetDefault("feed.commentary_url", d.Feed.CommentaryURL)

	v.SetDefault("state.path", d.State.Path)

	v.SetDefault("journal.type", d.Journal.Type)
	v.SetDefault("journal.orders_file", d.Journal.OrdersFile)
	v.SetDefault("journal.equity_file", d.Journal.EquityFile)
	v.SetDefault("journal.db_path", d.Journal.DBPath)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration and reports every problem it finds
func (c *Config) Validate() error {
	var errs error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = multierr.Append(errs, fmt.Errorf("%s: failed %q", fieldPath(fe.Namespace()), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.OrdersFile == "" || c.Journal.EquityFile == "" {
			errs = multierr.Append(errs, fmt.Errorf("journal orders_file and equity_file required for CSV type"))
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			errs = multierr.Append(errs, fmt.Errorf("journal db_path required for SQLite type"))
		}
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		errs = multierr.Append(errs, fmt.Errorf("server.addr is required when the server is enabled"))
	}
	return errs
}

// fieldPath turns "Config.market.tick_interval" into "market.tick_interval".
func fieldPath(ns string) string {
	return strings.TrimPrefix(ns, "Config.")
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Balance: 1_000_000,
		},
		Market: MarketConfig{
			Volatility:   0.0015,
			TickInterval: 2 * time.Second,
		},
		Feed: FeedConfig{
			Timeout:      10 * time.Second,
			SyncInterval: time.Minute,
			MinInterval:  5 * time.Second,
		},
		State: StateConfig{
			Path: "./papertrader.json",
		},
		Journal: JournalConfig{
			Type:       "none",
			OrdersFile: "./orders.csv",
			EquityFile: "./equity.csv",
			DBPath:     "./journal.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
