package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Email     EmailConfig     `mapstructure:"email"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	SlotLock  SlotLockConfig  `mapstructure:"slot_lock"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Mode is passed to gin.SetMode.
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL is the form golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	// URL empty disables Redis: the slot lock falls back to in-process and
	// queued email delivery is unavailable.
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type RegistryConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type EmailConfig struct {
	// Provider is one of smtp, sendgrid, log.
	Provider string `mapstructure:"provider"`
	// Delivery is direct or queued.
	Delivery string        `mapstructure:"delivery"`
	From     string        `mapstructure:"from"`
	FromName string        `mapstructure:"from_name"`
	Timeout  time.Duration `mapstructure:"timeout"`
	SMTP     SMTPConfig    `mapstructure:"smtp"`
	SendGrid struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"sendgrid"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type WorkerConfig struct {
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
	LicenseInterval  time.Duration `mapstructure:"license_interval"`
	// SweepConcurrency bounds parallel email dispatch in sweeps and broadcasts.
	SweepConcurrency int  `mapstructure:"sweep_concurrency"`
	RunOnStart       bool `mapstructure:"run_on_start"`
	RelayEmails      bool `mapstructure:"relay_emails"`
	// HealthPort serves /health and /metrics for the worker process.
	HealthPort int `mapstructure:"health_port"`
}

type SlotLockConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Step    time.Duration `mapstructure:"step"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// envOverrides are read from CONSULT_* variables after the file is loaded.
// Secrets belong here rather than in config.yml.
type envOverrides struct {
	ServerPort     int    `envconfig:"SERVER_PORT"`
	DBHost         string `envconfig:"DB_HOST"`
	DBPort         int    `envconfig:"DB_PORT"`
	DBUser         string `envconfig:"DB_USER"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	DBName         string `envconfig:"DB_NAME"`
	RedisURL       string `envconfig:"REDIS_URL"`
	RegistryURL    string `envconfig:"REGISTRY_URL"`
	EmailProvider  string `envconfig:"EMAIL_PROVIDER"`
	EmailDelivery  string `envconfig:"EMAIL_DELIVERY"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
}

const envPrefix = "consult"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "consultations")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("registry.base_url", "https://npiregistry.cms.hhs.gov/api")
	v.SetDefault("registry.timeout", 10*time.Second)
	v.SetDefault("registry.max_retries", 3)
	v.SetDefault("registry.retry_backoff", time.Second)
	v.SetDefault("registry.cache_ttl", 5*time.Minute)
	v.SetDefault("registry.requests_per_second", 5.0)
	v.SetDefault("registry.burst", 5)

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.delivery", "direct")
	v.SetDefault("email.from", "no-reply@consultations.local")
	v.SetDefault("email.from_name", "Your Healthcare Team")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.smtp.port", 587)

	v.SetDefault("worker.reminder_interval", 24*time.Hour)
	v.SetDefault("worker.license_interval", 24*time.Hour)
	v.SetDefault("worker.sweep_concurrency", 8)
	v.SetDefault("worker.relay_emails", true)
	v.SetDefault("worker.health_port", 8081)

	v.SetDefault("slot_lock.ttl", 10*time.Second)
	v.SetDefault("slot_lock.step", 50*time.Millisecond)
	v.SetDefault("slot_lock.max_wait", 5*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yml from the usual locations (a missing file is
// fine, defaults apply) and overlays CONSULT_* environment variables.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	cfg.applyEnv(env)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	setInt(&c.Server.Port, env.ServerPort)
	setString(&c.Database.Host, env.DBHost)
	setInt(&c.Database.Port, env.DBPort)
	setString(&c.Database.User, env.DBUser)
	setString(&c.Database.Password, env.DBPassword)
	setString(&c.Database.Name, env.DBName)
	setString(&c.Redis.URL, env.RedisURL)
	setString(&c.Registry.BaseURL, env.RegistryURL)
	setString(&c.Email.Provider, env.EmailProvider)
	setString(&c.Email.Delivery, env.EmailDelivery)
	setString(&c.Email.SMTP.Password, env.SMTPPassword)
	setString(&c.Email.SendGrid.APIKey, env.SendGridAPIKey)
	setString(&c.Log.Level, env.LogLevel)
}

func (c *Config) validate() error {
	switch c.Email.Provider {
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp.host is required for the smtp provider")
		}
	case "sendgrid":
		if c.Email.SendGrid.APIKey == "" {
			return fmt.Errorf("email.sendgrid.api_key is required for the sendgrid provider")
		}
	case "log":
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}

	switch c.Email.Delivery {
	case "direct":
	case "queued":
		if c.Redis.URL == "" {
			return fmt.Errorf("queued email delivery requires redis.url")
		}
	default:
		return fmt.Errorf("unknown email delivery %q", c.Email.Delivery)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
