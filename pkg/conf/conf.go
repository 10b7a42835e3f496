package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    Server    `mapstructure:"server"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Redis     Redis     `mapstructure:"redis"`
	Auth      Auth      `mapstructure:"auth"`
	Engine    Engine    `mapstructure:"engine"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Log       Log       `mapstructure:"log"`
}

type Server struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Postgres configures the store. Driver "memory" keeps everything in process
// and ignores DSN.
type Postgres struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Auth struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Engine holds the league rules and the deadlines of interactive steps.
type Engine struct {
	OfferTimeout         time.Duration `mapstructure:"offer_timeout"`
	TradeResponseTimeout time.Duration `mapstructure:"trade_response_timeout"`
	TradeReviewTimeout   time.Duration `mapstructure:"trade_review_timeout"`
	SelectionTimeout     time.Duration `mapstructure:"selection_timeout"`
	WaiverWindow         time.Duration `mapstructure:"waiver_window"`
	DefaultTermDays      int           `mapstructure:"default_term_days"`
	ELCSalary            int64         `mapstructure:"elc_salary"`
	ELCTermDays          int           `mapstructure:"elc_term_days"`
	MaxExempt            int           `mapstructure:"max_exempt"`
}

type Scheduler struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// DefaultEngine returns the league rules used when nothing is configured.
func DefaultEngine() Engine {
	return Engine{
		OfferTimeout:         30 * time.Second,
		TradeResponseTimeout: 30 * time.Second,
		TradeReviewTimeout:   30 * time.Second,
		SelectionTimeout:     30 * time.Second,
		WaiverWindow:         48 * time.Hour,
		DefaultTermDays:      365,
		ELCSalary:            750_000,
		ELCTermDays:          3 * 365,
		MaxExempt:            2,
	}
}

func setDefaults(v *viper.Viper) {
	e := DefaultEngine()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("postgres.driver", "postgres")
	v.SetDefault("postgres.dsn", "host=localhost user=postgres password=postgres dbname=db port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 72*time.Hour)
	v.SetDefault("engine.offer_timeout", e.OfferTimeout)
	v.SetDefault("engine.trade_response_timeout", e.TradeResponseTimeout)
	v.SetDefault("engine.trade_review_timeout", e.TradeReviewTimeout)
	v.SetDefault("engine.selection_timeout", e.SelectionTimeout)
	v.SetDefault("engine.waiver_window", e.WaiverWindow)
	v.SetDefault("engine.default_term_days", e.DefaultTermDays)
	v.SetDefault("engine.elc_salary", e.ELCSalary)
	v.SetDefault("engine.elc_term_days", e.ELCTermDays)
	v.SetDefault("engine.max_exempt", e.MaxExempt)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("log.level", "info")
}

// Load reads conf.yaml from path (if present) and HOCKEYBOT_* environment
// variables on top of the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix("hockeybot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Auth.Secret == "" {
		return Config{}, errors.New("auth.secret is required")
	}
	if cfg.Postgres.Driver != "postgres" && cfg.Postgres.Driver != "memory" {
		return Config{}, fmt.Errorf("postgres.driver must be postgres or memory, got %q", cfg.Postgres.Driver)
	}
	if cfg.Engine.MaxExempt < 0 {
		return Config{}, errors.New("engine.max_exempt must not be negative")
	}
	return cfg, nil
}
