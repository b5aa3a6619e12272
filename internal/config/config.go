// Package config loads runtime configuration from an optional YAML file,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/sale"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvMemory      = "memory"
)

type Config struct {
	App struct {
		Env  string `mapstructure:"env"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Database struct {
		DSN              string        `mapstructure:"dsn"`
		MaxConns         int32         `mapstructure:"max_conns"`
		MinConns         int32         `mapstructure:"min_conns"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout"`
		LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	} `mapstructure:"database"`

	Redis struct {
		Addr       string        `mapstructure:"addr"`
		Password   string        `mapstructure:"password"`
		DB         int           `mapstructure:"db"`
		BalanceTTL time.Duration `mapstructure:"balance_ttl"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Ledger struct {
		RollupAccounts []string `mapstructure:"rollup_accounts"`
		SaleCategory   string   `mapstructure:"sale_category"`
	} `mapstructure:"ledger"`

	Idempotency struct {
		Enabled bool          `mapstructure:"enabled"`
		TTL     time.Duration `mapstructure:"ttl"`
	} `mapstructure:"idempotency"`

	Worker struct {
		OutboxInterval    time.Duration `mapstructure:"outbox_interval"`
		ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
		OutboxBatchSize   int           `mapstructure:"outbox_batch_size"`
		OutboxRetention   time.Duration `mapstructure:"outbox_retention"`
		MetricsAddr       string        `mapstructure:"metrics_addr"`
	} `mapstructure:"worker"`
}

// Load reads configs/config.yaml if present, then .env, then the environment.
// APP_ENV overrides app.env, DATABASE_DSN overrides database.dsn and so on.
func Load() (*Config, error) {
	return LoadFile("configs/config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// the config file is optional
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("database.lock_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.balance_ttl", 5*time.Minute)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "clinicledger")

	v.SetDefault("ledger.rollup_accounts", []string{string(ledger.Optics)})
	v.SetDefault("ledger.sale_category", "POS Sale")

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("worker.outbox_interval", 5*time.Second)
	v.SetDefault("worker.reconcile_interval", 10*time.Minute)
	v.SetDefault("worker.outbox_batch_size", 100)
	v.SetDefault("worker.outbox_retention", 7*24*time.Hour)
	v.SetDefault("worker.metrics_addr", ":9091")
}

// Validate rejects configurations the binaries cannot run with.
func (c *Config) Validate() error {
	if c.App.Env != EnvMemory && strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if !c.IsDevelopment() && strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required outside development")
	}
	for _, k := range c.Ledger.RollupAccounts {
		if _, err := ledger.ParseAccountKind(k); err != nil {
			return fmt.Errorf("ledger.rollup_accounts: %w", err)
		}
	}
	if c.Worker.OutboxInterval <= 0 || c.Worker.ReconcileInterval <= 0 {
		return errors.New("worker intervals must be positive")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port %d out of range", c.App.Port)
	}
	return nil
}

// IsDevelopment reports whether the app runs with development conveniences.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment || c.App.Env == EnvMemory
}

// SaleConfig converts the ledger section into sale booking settings.
func (c *Config) SaleConfig() sale.Config {
	out := sale.Config{SaleCategory: c.Ledger.SaleCategory}
	for _, k := range c.Ledger.RollupAccounts {
		out.RollupAccounts = append(out.RollupAccounts, ledger.AccountKind(k))
	}
	return out
}
