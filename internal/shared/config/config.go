package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	SwaggerUI    bool          `mapstructure:"swagger_ui"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// PaymentConfig holds payment gateway configuration.
type PaymentConfig struct {
	Currency      string         `mapstructure:"currency"`
	Paystack      PaystackConfig `mapstructure:"paystack"`
	Stripe        StripeConfig   `mapstructure:"stripe"`
	Crypto        CryptoConfig   `mapstructure:"crypto"`
	InitRateLimit RateLimit      `mapstructure:"init_rate_limit"`
}

// PaystackConfig holds Paystack gateway configuration.
type PaystackConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StripeConfig holds Stripe gateway configuration.
type StripeConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// CryptoConfig holds the on-chain verification configuration. When the
// explorer URL is empty, crypto claims are stored but never promoted to a
// confirmed payment.
type CryptoConfig struct {
	ExplorerURL string        `mapstructure:"explorer_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RateLimit holds a request rate limit.
type RateLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// NotifyConfig holds outbound notification configuration.
type NotifyConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
	SMS  SMSConfig  `mapstructure:"sms"`
}

// SMTPConfig holds SMTP mailer configuration.
type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// SMSConfig holds the Twilio-compatible SMS sender configuration.
type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/asoasiko")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("ASOASIKO")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("ASOASIKO_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("ASOASIKO_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if key := os.Getenv("ASOASIKO_PAYSTACK_SECRET_KEY"); key != "" {
		cfg.Payment.Paystack.SecretKey = key
	}
	if key := os.Getenv("ASOASIKO_STRIPE_API_KEY"); key != "" {
		cfg.Payment.Stripe.APIKey = key
	}
	if secret := os.Getenv("ASOASIKO_STRIPE_WEBHOOK_SECRET"); secret != "" {
		cfg.Payment.Stripe.WebhookSecret = secret
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.swagger_ui", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "asoasiko")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("payment.currency", "NGN")
	v.SetDefault("payment.paystack.base_url", "https://api.paystack.co")
	v.SetDefault("payment.paystack.timeout", 15*time.Second)
	v.SetDefault("payment.crypto.timeout", 15*time.Second)
	v.SetDefault("payment.init_rate_limit.limit", 10)
	v.SetDefault("payment.init_rate_limit.window", time.Minute)

	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.sms.base_url", "https://api.twilio.com")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
