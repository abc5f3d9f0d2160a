package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "GIGFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GIGFLOW_DB_DSN"
	EnvDBHost = "GIGFLOW_DB_HOST"
	EnvDBUser = "GIGFLOW_DB_USER"
	EnvDBName = "GIGFLOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Stripe        StripeConfig
	Notifications NotificationsConfig
	Orders        OrdersConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIGFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"GIGFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIGFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIGFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"GIGFLOW_DB_DSN"`

	LegacyHost     string `envconfig:"GIGFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"GIGFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIGFLOW_DB_USER"`
	LegacyPassword string `envconfig:"GIGFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIGFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIGFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIGFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIGFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIGFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIGFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIGFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIGFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"GIGFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIGFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIGFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIGFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIGFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIGFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIGFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIGFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIGFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIGFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"GIGFLOW_STRIPE_API_KEY"`
	WebhookSecret string        `envconfig:"GIGFLOW_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"GIGFLOW_STRIPE_ENV" default:"test"`
	SuccessURL    string        `envconfig:"GIGFLOW_STRIPE_SUCCESS_URL" default:"https://gigflow.app/payments/success"`
	CancelURL     string        `envconfig:"GIGFLOW_STRIPE_CANCEL_URL" default:"https://gigflow.app/payments/cancel"`
	EventTTL      time.Duration `envconfig:"GIGFLOW_STRIPE_EVENT_TTL" default:"720h"`
	MaxRetries    uint64        `envconfig:"GIGFLOW_STRIPE_MAX_RETRIES" default:"3"`
	RetryBackoff  time.Duration `envconfig:"GIGFLOW_STRIPE_RETRY_BACKOFF" default:"250ms"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"GIGFLOW_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

type OrdersConfig struct {
	CheckoutTTL time.Duration `envconfig:"GIGFLOW_ORDER_CHECKOUT_TTL" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GIGFLOW_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"GIGFLOW_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIGFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
