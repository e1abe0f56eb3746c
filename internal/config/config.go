package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"SERVER_PORT"`
		Mode           string   `yaml:"mode" env:"SERVER_MODE"`
		StoragePath    string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsPath  string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
	} `yaml:"smtp"`

	PVerify struct {
		BaseURL      string `yaml:"base_url" env:"PVERIFY_BASE_URL"`
		ClientID     string `yaml:"client_id" env:"PVERIFY_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"PVERIFY_CLIENT_SECRET"`
		Timeout      string `yaml:"timeout" env:"PVERIFY_TIMEOUT"`
		RetryCount   int    `yaml:"retry_count" env:"PVERIFY_RETRY_COUNT"`
		CacheTTL     string `yaml:"cache_ttl" env:"PVERIFY_CACHE_TTL"`
	} `yaml:"pverify"`

	Accumulation struct {
		SenderID   string `yaml:"sender_id" env:"ACCUMULATION_SENDER_ID"`
		OutputPath string `yaml:"output_path" env:"ACCUMULATION_OUTPUT_PATH"`
		Cron       string `yaml:"cron" env:"ACCUMULATION_CRON"`
	} `yaml:"accumulation"`

	EDI struct {
		AdministratorID string `yaml:"administrator_id" env:"EDI_ADMINISTRATOR_ID"`
		EmployerID      string `yaml:"employer_id" env:"EDI_EMPLOYER_ID"`
		OutputPath      string `yaml:"output_path" env:"EDI_OUTPUT_PATH"`
		Cron            string `yaml:"cron" env:"EDI_CRON"`
	} `yaml:"edi"`

	Seed struct {
		OpsEmail    string `yaml:"ops_email" env:"SEED_OPS_EMAIL"`
		OpsPassword string `yaml:"ops_password" env:"SEED_OPS_PASSWORD"`
	} `yaml:"seed"`

	Jobs struct {
		Enabled          bool   `yaml:"enabled" env:"JOBS_ENABLED"`
		ReminderCron     string `yaml:"reminder_cron" env:"JOBS_REMINDER_CRON"`
		ReminderLead     string `yaml:"reminder_lead" env:"JOBS_REMINDER_LEAD"`
		TokenCleanupCron string `yaml:"token_cleanup_cron" env:"JOBS_TOKEN_CLEANUP_CRON"`
	} `yaml:"jobs"`
}

// LoadConfig loads configuration from a .env file, a YAML file and
// environment variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "storage"
	config.Server.AllowedOrigins = []string{"http://localhost:3000"}

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "carebridge"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsPath = "migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "carebridge.health"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.Addr = "localhost:6379"

	config.SMTP.Port = 587
	config.SMTP.FromName = "CareBridge"
	config.SMTP.FromEmail = "no-reply@carebridge.health"

	config.PVerify.BaseURL = "https://api.pverify.com"
	config.PVerify.Timeout = "15s"
	config.PVerify.RetryCount = 3
	config.PVerify.CacheTTL = "12h"

	config.Accumulation.SenderID = "CAREBRIDGE"
	config.Accumulation.OutputPath = "accumulation"
	config.Accumulation.Cron = "0 2 * * *"

	config.EDI.OutputPath = "edi"
	config.EDI.Cron = "30 2 * * *"

	config.Jobs.Enabled = true
	config.Jobs.ReminderCron = "*/15 * * * *"
	config.Jobs.ReminderLead = "24h"
	config.Jobs.TokenCleanupCron = "0 4 * * *"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration": config.JWT.RefreshTokenExpiration,
		"database connection lifetime": config.Database.ConnMaxLifetime,
		"pVerify timeout":              config.PVerify.Timeout,
		"pVerify cache TTL":            config.PVerify.CacheTTL,
		"reminder lead":                config.Jobs.ReminderLead,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	schedules := map[string]string{
		"accumulation cron":  config.Accumulation.Cron,
		"EDI cron":           config.EDI.Cron,
		"reminder cron":      config.Jobs.ReminderCron,
		"token cleanup cron": config.Jobs.TokenCleanupCron,
	}
	for name, spec := range schedules {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	if config.PVerify.RetryCount < 0 {
		return fmt.Errorf("pVerify retry count cannot be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
