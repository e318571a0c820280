package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the process reads.
const EnvPrefix = "WEBLOOM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Razorpay     RazorpayConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"WEBLOOM_APP_ENV" required:"true"`
	Port         string `envconfig:"WEBLOOM_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"WEBLOOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WEBLOOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"WEBLOOM_DB_DSN"`

	Host     string `envconfig:"WEBLOOM_DB_HOST"`
	Port     int    `envconfig:"WEBLOOM_DB_PORT" default:"5432"`
	User     string `envconfig:"WEBLOOM_DB_USER"`
	Password string `envconfig:"WEBLOOM_DB_PASSWORD"`
	Name     string `envconfig:"WEBLOOM_DB_NAME"`
	SSLMode  string `envconfig:"WEBLOOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WEBLOOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WEBLOOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WEBLOOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WEBLOOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WEBLOOM_REDIS_URL"`
	Address      string        `envconfig:"WEBLOOM_REDIS_ADDR"`
	Password     string        `envconfig:"WEBLOOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"WEBLOOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WEBLOOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WEBLOOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WEBLOOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WEBLOOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WEBLOOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all. The API runs
// without redis, it just loses idempotency replay protection.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WEBLOOM_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RazorpayConfig carries the gateway credentials. The key secret signs payment
// verification HMACs and must never be logged or sent to clients.
type RazorpayConfig struct {
	KeyID           string `envconfig:"WEBLOOM_RAZORPAY_KEY_ID" required:"true"`
	KeySecret       string `envconfig:"WEBLOOM_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL         string `envconfig:"WEBLOOM_RAZORPAY_BASE_URL"`
	DefaultCurrency string `envconfig:"WEBLOOM_RAZORPAY_CURRENCY" default:"INR"`
}

type CheckoutConfig struct {
	// GatewayAwaitTimeout bounds how long a checkout waits for the hosted
	// payment UI to call back before the attempt is abandoned.
	GatewayAwaitTimeout time.Duration `envconfig:"WEBLOOM_CHECKOUT_GATEWAY_AWAIT_TIMEOUT" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WEBLOOM_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"WEBLOOM_DB_HOST": db.Host,
		"WEBLOOM_DB_USER": db.User,
		"WEBLOOM_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either WEBLOOM_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
