// Package config loads runtime settings from defaults, an optional config file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort    string `mapstructure:"APP_PORT"`
	ConfigFile string `mapstructure:"CONFIG_FILE"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`
	OTPTTL    time.Duration `mapstructure:"OTP_TTL"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`
	RabbitMQQueue    string `mapstructure:"RABBITMQ_QUEUE"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	GuestTTL      time.Duration `mapstructure:"GUEST_TTL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	TaxRate                   float64 `mapstructure:"TAX_RATE"`
	ShippingFee               float64 `mapstructure:"SHIPPING_FEE"`
	FreeShippingThreshold     float64 `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	RequirePaidBeforeDelivery bool    `mapstructure:"REQUIRE_PAID_BEFORE_DELIVERY"`

	SeedFile      string `mapstructure:"SEED_FILE"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	AuthRateLimit int    `mapstructure:"AUTH_RATE_LIMIT"` // requests per minute per IP on /auth
}

var defaults = map[string]any{
	"APP_PORT":                     ":8080",
	"CONFIG_FILE":                  "",
	"DB_DRIVER":                    "sqlite",
	"DB_DSN":                       "storefront.db",
	"JWT_SECRET":                   "change-me",
	"TOKEN_TTL":                    30 * 24 * time.Hour,
	"OTP_TTL":                      10 * time.Minute,
	"RABBITMQ_URL":                 "",
	"RABBITMQ_EXCHANGE":            "storefront.orders",
	"RABBITMQ_QUEUE":               "order_events",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"GUEST_TTL":                    7 * 24 * time.Hour,
	"SMTP_HOST":                    "",
	"SMTP_PORT":                    587,
	"SMTP_USER":                    "",
	"SMTP_PASSWORD":                "",
	"MAIL_FROM":                    "Storefront <no-reply@storefront.local>",
	"TAX_RATE":                     0.10,
	"SHIPPING_FEE":                 0.0,
	"FREE_SHIPPING_THRESHOLD":      0.0,
	"REQUIRE_PAID_BEFORE_DELIVERY": true,
	"SEED_FILE":                    "",
	"LOG_LEVEL":                    "info",
	"LOG_FORMAT":                   "json",
	"AUTH_RATE_LIMIT":              30,
}

// Loader reads configuration through a dedicated viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment binding in place.
func NewLoader() *Loader {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load reads the optional config file named by CONFIG_FILE and unmarshals the result.
func (l *Loader) Load() (*Config, error) {
	if file := l.v.GetString("CONFIG_FILE"); file != "" {
		l.v.SetConfigFile(file)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return l.unmarshal()
}

// Watch reloads the config file whenever it changes and passes the new values to onChange.
// It is a no-op when no config file is in use.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.unmarshal()
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("config reload failed, keeping previous values")
			return
		}
		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("config reloaded")
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TaxRate < 0 || c.ShippingFee < 0 || c.FreeShippingThreshold < 0 {
		return fmt.Errorf("pricing settings must not be negative")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}
