package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Twilio    TwilioSettings    `mapstructure:"twilio"`
	Session   SessionSettings   `mapstructure:"session"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// TwilioSettings configures the Verify Passkeys API client. AccountSID and
// AuthToken form the Basic auth pair on every call; ServiceSID selects the
// Verify service provisioned with cmd/provision.
type TwilioSettings struct {
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	ServiceSID string        `mapstructure:"service_sid"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SessionSettings configures the session cookie and server-side state.
type SessionSettings struct {
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	TTL          time.Duration `mapstructure:"ttl"`
	PendingTTL   time.Duration `mapstructure:"pending_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// RedisSettings configures the Redis connection. When Host is empty the
// service falls back to in-memory session storage.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the audit event producer. Empty Brokers selects
// the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// RateLimitSettings configures sliding-window limits for the ceremony start
// endpoints.
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PASSKEY")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"twilio.account_sid",
		"twilio.auth_token",
		"twilio.service_sid",
		"twilio.base_url",
		"twilio.timeout",
		"session.cookie_name",
		"session.cookie_secure",
		"session.ttl",
		"session.pending_ttl",
		"session.key_prefix",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"rate_limit.window_duration",
		"rate_limit.register_max_attempts",
		"rate_limit.login_max_attempts",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the verify client cannot run without.
func (c *AppConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Twilio.AccountSID) == "":
		return fmt.Errorf("twilio account sid is required (TWILIO_ACCOUNT_SID)")
	case strings.TrimSpace(c.Twilio.AuthToken) == "":
		return fmt.Errorf("twilio auth token is required (TWILIO_AUTH_TOKEN)")
	case strings.TrimSpace(c.Twilio.ServiceSID) == "":
		return fmt.Errorf("twilio service sid is required (TWILIO_SERVICE_SID)")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "passkey-demo")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("twilio.base_url", "https://verify.twilio.com/v2")
	v.SetDefault("twilio.timeout", "10s")

	v.SetDefault("session.cookie_name", "passkey_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.pending_ttl", "5m")
	v.SetDefault("session.key_prefix", "passkey:session")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "passkey")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.register_max_attempts", 5)
	v.SetDefault("rate_limit.login_max_attempts", 10)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "PASSKEY_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
