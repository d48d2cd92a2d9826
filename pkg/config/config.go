package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/compta/pkg/extract"
	"github.com/yurifrl/compta/pkg/validate"
)

type Config struct {
	Timezone string `mapstructure:"timezone"`

	Limits struct {
		MinYear   int     `mapstructure:"min_year"`
		MaxYear   int     `mapstructure:"max_year"`
		MaxAmount float64 `mapstructure:"max_amount"`
	} `mapstructure:"limits"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Telegram struct {
		Token       string  `mapstructure:"token"`
		ReportChats []int64 `mapstructure:"report_chats"`
	} `mapstructure:"telegram"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`

	Ledger struct {
		Backend string `mapstructure:"backend"` // xlsx, postgres or memory
		Path    string `mapstructure:"path"`
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"ledger"`

	Session struct {
		Backend string        `mapstructure:"backend"` // memory or postgres
		DSN     string        `mapstructure:"dsn"`
		TTL     time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`

	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`

	YNAB struct {
		Token     string `mapstructure:"token"`
		BudgetID  string `mapstructure:"budget_id"`
		AccountID string `mapstructure:"account_id"`
	} `mapstructure:"ynab"`

	Schedule struct {
		Report  string `mapstructure:"report"`
		Cleanup string `mapstructure:"cleanup"`
	} `mapstructure:"schedule"`

	Media struct {
		MaxFileBytes int64         `mapstructure:"max_file_bytes"`
		MaxAudio     time.Duration `mapstructure:"max_audio"`
	} `mapstructure:"media"`

	Picker struct {
		Days int `mapstructure:"days"`
	} `mapstructure:"picker"`
}

func setDefaults(v *viper.Viper) {
	lim := validate.DefaultLimits()
	media := extract.DefaultLimits()

	v.SetDefault("timezone", "Europe/Paris")
	v.SetDefault("limits.min_year", lim.MinYear)
	v.SetDefault("limits.max_year", lim.MaxYear)
	v.SetDefault("limits.max_amount", lim.MaxAmount.InexactFloat64())
	v.SetDefault("log.level", "info")
	v.SetDefault("gemini.model", extract.DefaultModel)
	v.SetDefault("ledger.backend", "xlsx")
	v.SetDefault("ledger.path", "compta.xlsx")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("http.addr", "0.0.0.0:3000")
	v.SetDefault("kafka.topic", "compta.days")
	v.SetDefault("schedule.cleanup", "@hourly")
	v.SetDefault("schedule.report", "0 8 1 * *")
	v.SetDefault("media.max_file_bytes", media.MaxFileBytes)
	v.SetDefault("media.max_audio", media.MaxAudio)
	v.SetDefault("picker.days", 7)
}

// Build loads configuration from (in increasing precedence) defaults, the
// config file, a .env file, the environment and flags. An empty cfgFile looks
// for config.yaml in the working directory and ~/.config/compta.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/compta")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("compta")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names the bot has always been deployed with.
	_ = v.BindEnv("telegram.token", "COMPTA_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("gemini.api_key", "COMPTA_GEMINI_API_KEY", "GEMINI_API_KEY")

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"log.level":      "log-level",
	"ledger.backend": "ledger",
	"ledger.path":    "ledger-path",
	"ledger.dsn":     "ledger-dsn",
	"http.addr":      "addr",
	"timezone":       "tz",
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	if c.Limits.MinYear > c.Limits.MaxYear {
		return fmt.Errorf("limits.min_year %d is after limits.max_year %d", c.Limits.MinYear, c.Limits.MaxYear)
	}
	if c.Limits.MaxAmount <= 0 {
		return fmt.Errorf("limits.max_amount must be positive")
	}
	switch c.Ledger.Backend {
	case "xlsx", "memory":
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown ledger.backend %q", c.Ledger.Backend)
	}
	switch c.Session.Backend {
	case "memory":
	case "postgres":
		if c.Session.DSN == "" {
			return fmt.Errorf("session.dsn is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) ValidatorLimits() validate.Limits {
	return validate.Limits{
		MinYear:   c.Limits.MinYear,
		MaxYear:   c.Limits.MaxYear,
		MaxAmount: decimal.NewFromFloat(c.Limits.MaxAmount),
	}
}

func (c *Config) MediaLimits() extract.Limits {
	return extract.Limits{MaxFileBytes: c.Media.MaxFileBytes, MaxAudio: c.Media.MaxAudio}
}
