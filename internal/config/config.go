package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minBcryptCost = 10

type Config struct {
	Port                 string        `env:"PORT" envDefault:"8080"`
	DatabaseURL          string        `env:"DATABASE_URL,required,notEmpty"`
	RedisURL             string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	JWTSecret            string        `env:"JWT_SECRET,required,notEmpty"`
	CodePrefix           string        `env:"CODE_PREFIX" envDefault:"coachfit:"`
	VerifyCodeTTL        time.Duration `env:"VERIFY_CODE_TTL" envDefault:"15m"`
	ResetCodeTTL         time.Duration `env:"RESET_CODE_TTL" envDefault:"24h"`
	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CallTimeout          time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
	BcryptCost           int           `env:"BCRYPT_COST" envDefault:"10"`
	VerificationDisabled bool          `env:"VERIFICATION_DISABLED"`
	AuditMaxLen          int64         `env:"AUDIT_MAX_LEN" envDefault:"200"`
	TrustedProxies       []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	Log                  LogConfig     `envPrefix:"LOG_"`
	Email                EmailConfig   `envPrefix:"EMAIL_"`
	SMS                  SMSConfig     `envPrefix:"SMS_"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"text"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
}

type EmailConfig struct {
	Host     string `env:"SERVER_HOST"`
	Port     int    `env:"SERVER_PORT" envDefault:"587"`
	Username string `env:"SERVER_USER"`
	Password string `env:"SERVER_PASSWORD"`
	From     string `env:"FROM"`
	FromName string `env:"FROM_NAME" envDefault:"CoachFit"`
	Secure   bool   `env:"SERVER_SECURE"`
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type SMSConfig struct {
	GatewayURL string `env:"GATEWAY_URL"`
	Token      string `env:"GATEWAY_TOKEN"`
	Sender     string `env:"SENDER" envDefault:"CoachFit"`
}

func (s SMSConfig) Enabled() bool {
	return s.GatewayURL != ""
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Email.Host = clean(cfg.Email.Host)
	cfg.Email.Username = clean(cfg.Email.Username)
	cfg.Email.Password = clean(cfg.Email.Password)
	cfg.Email.From = clean(cfg.Email.From)
	cfg.TrustedProxies = cleanList(cfg.TrustedProxies)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BcryptCost < minBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d", minBcryptCost)
	}
	if c.VerifyCodeTTL <= 0 || c.ResetCodeTTL <= 0 {
		return fmt.Errorf("code TTLs must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func clean(val string) string {
	return strings.Trim(val, "\"' \t\r\n")
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
