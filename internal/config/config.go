package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Sentry     SentryConfig
	Cache      CacheConfig
	Ledger     LedgerConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
	// WriteRateLimit is the sustained number of mutating requests per second allowed per tenant.
	// Zero disables throttling.
	WriteRateLimit float64 `mapstructure:"write_rate_limit" validate:"gte=0"`
	WriteBurst     int     `mapstructure:"write_burst" validate:"gte=0"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	// ConnectTimeoutSeconds bounds the startup retry loop against an unavailable database.
	ConnectTimeoutSeconds int  `mapstructure:"connect_timeout_seconds" default:"30"`
	AutoMigrate           bool `mapstructure:"auto_migrate" default:"false"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// TTLSeconds is how long a resolved case stays cached.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"300"`
}

type LedgerConfig struct {
	Currency             string          `mapstructure:"currency" validate:"required,len=3"`
	DefaultVATPercentage decimal.Decimal `mapstructure:"-"`
	DefaultTenantID      string          `mapstructure:"default_tenant_id"`
}

func NewConfig() (*Configuration, error) {
	// a missing .env is fine; the real environment and config.yaml still apply
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lexledger")

	v.SetEnvPrefix("LEXLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// decimal values are not decodable by mapstructure, parse the rate by hand
	rate, err := decimal.NewFromString(v.GetString("ledger.default_vat_percentage"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.default_vat_percentage: %w", err)
	}
	config.Ledger.DefaultVATPercentage = rate

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.write_rate_limit", 20)
	v.SetDefault("server.write_burst", 40)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "lexledger")
	v.SetDefault("postgres.dbname", "lexledger")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.connect_timeout_seconds", 30)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("ledger.currency", "AED")
	v.SetDefault("ledger.default_vat_percentage", "5")
	v.SetDefault("ledger.default_tenant_id", types.DefaultTenantID)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Ledger.DefaultVATPercentage.IsNegative() {
		return errors.New("ledger.default_vat_percentage must not be negative")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache:      CacheConfig{Enabled: true, TTLSeconds: 300},
		Ledger: LedgerConfig{
			Currency:             "AED",
			DefaultVATPercentage: decimal.NewFromInt(5),
			DefaultTenantID:      types.DefaultTenantID,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
