package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MENU"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Security  SecuritySettings  `mapstructure:"security"`
	Session   SessionSettings   `mapstructure:"session"`
	Mail      MailSettings      `mapstructure:"mail"`
	Payment   PaymentSettings   `mapstructure:"payment"`
	Admin     AdminSettings     `mapstructure:"admin"`
}

type AppSettings struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// IsProduction reports whether secure cookie and logging defaults apply.
func (a AppSettings) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// DSN renders the connection string understood by pgx.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures Kafka producer. An empty broker list disables publishing.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// LimitPolicy is one sliding-window rule.
type LimitPolicy struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitSettings configures the sliding-window policies.
type RateLimitSettings struct {
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	LoginIP      LimitPolicy   `mapstructure:"login_ip"`
	LoginEmail   LimitPolicy   `mapstructure:"login_email"`
	SignupIP     LimitPolicy   `mapstructure:"signup_ip"`
	VerifyCode   LimitPolicy   `mapstructure:"verify_code"`
}

// Argon2Settings configures Argon2id credential hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// SecuritySettings holds signing secrets for verification tokens.
type SecuritySettings struct {
	SignupSecret     string        `mapstructure:"signup_secret"`
	SignupTokenTTL   time.Duration `mapstructure:"signup_token_ttl"`
	SignupRequestTTL time.Duration `mapstructure:"signup_request_ttl"`
}

// SessionSettings configures the session cookie.
type SessionSettings struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// MailSettings configures outbound SMTP. An empty host selects the logging sender.
type MailSettings struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PaymentSettings configures the checkout provider.
type PaymentSettings struct {
	SecretKey     string            `mapstructure:"secret_key"`
	WebhookSecret string            `mapstructure:"webhook_secret"`
	Prices        map[string]string `mapstructure:"prices"`
	SuccessPath   string            `mapstructure:"success_path"`
	CancelPath    string            `mapstructure:"cancel_path"`
	Timeout       time.Duration     `mapstructure:"timeout"`
}

// AdminSettings names the operator account created at startup. An empty email skips bootstrapping.
type AdminSettings struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether a bootstrap admin is configured.
func (a AdminSettings) Enabled() bool {
	return strings.TrimSpace(a.Email) != ""
}

// Plans returns the configured plan identifiers in stable order.
func (p PaymentSettings) Plans() []string {
	plans := make([]string, 0, len(p.Prices))
	for plan := range p.Prices {
		plans = append(plans, plan)
	}
	sort.Strings(plans)
	return plans
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.base_url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.store_timeout",
		"rate_limit.login_ip.limit",
		"rate_limit.login_ip.window",
		"rate_limit.login_email.limit",
		"rate_limit.login_email.window",
		"rate_limit.signup_ip.limit",
		"rate_limit.signup_ip.window",
		"rate_limit.verify_code.limit",
		"rate_limit.verify_code.window",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"security.signup_secret",
		"security.signup_token_ttl",
		"security.signup_request_ttl",
		"session.secret",
		"session.cookie_name",
		"session.ttl",
		"mail.host",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.from",
		"mail.timeout",
		"payment.secret_key",
		"payment.webhook_secret",
		"payment.prices.silver",
		"payment.prices.gold",
		"payment.success_path",
		"payment.cancel_path",
		"payment.timeout",
		"admin.email",
		"admin.password",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would run without signing secrets.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Security.SignupSecret) == "" {
		errs = append(errs, errors.New("security.signup_secret is required"))
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		errs = append(errs, errors.New("session.secret is required"))
	}
	if len(c.Payment.Prices) == 0 {
		errs = append(errs, errors.New("payment.prices must list at least one plan"))
	}
	for _, plan := range c.Payment.Plans() {
		if strings.TrimSpace(c.Payment.Prices[plan]) == "" {
			errs = append(errs, fmt.Errorf("payment.prices.%s must name a price", plan))
		}
	}
	if c.Admin.Enabled() && c.Admin.Password == "" {
		errs = append(errs, errors.New("admin.password is required when admin.email is set"))
	}
	if c.App.IsProduction() {
		if c.Payment.SecretKey == "" || c.Payment.WebhookSecret == "" {
			errs = append(errs, errors.New("payment.secret_key and payment.webhook_secret are required in production"))
		}
		if c.Mail.Host == "" {
			errs = append(errs, errors.New("mail.host is required in production"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "menu-accounts")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.base_url", "http://localhost:3000")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "menu")
	v.SetDefault("postgres.password", "menu_password")
	v.SetDefault("postgres.database", "menu")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "rl")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "menu")
	v.SetDefault("kafka.async", true)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "menu-accounts")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.store_timeout", "250ms")
	v.SetDefault("rate_limit.login_ip.limit", 10)
	v.SetDefault("rate_limit.login_ip.window", "1m")
	v.SetDefault("rate_limit.login_email.limit", 5)
	v.SetDefault("rate_limit.login_email.window", "15m")
	v.SetDefault("rate_limit.signup_ip.limit", 10)
	v.SetDefault("rate_limit.signup_ip.window", "1m")
	v.SetDefault("rate_limit.verify_code.limit", 5)
	v.SetDefault("rate_limit.verify_code.window", "15m")

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 2)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("security.signup_secret", "")
	v.SetDefault("security.signup_token_ttl", "15m")
	v.SetDefault("security.signup_request_ttl", "15m")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.ttl", "24h")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("payment.prices", map[string]string{
		"silver": "price_silver",
		"gold":   "price_gold",
	})
	v.SetDefault("payment.success_path", "/signup/success")
	v.SetDefault("payment.cancel_path", "/signup?canceled=1")
	v.SetDefault("payment.timeout", "10s")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
