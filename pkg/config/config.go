package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is passed to envconfig; the explicit envconfig tags below
	// already carry it, it only namespaces untagged fields.
	EnvPrefix = "FASHIONPLACE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "FASHIONPLACE_APP_ENV"
	EnvPort       = "FASHIONPLACE_APP_PORT"
	EnvDBDSN      = "FASHIONPLACE_DB_DSN"
	EnvDBHost     = "FASHIONPLACE_DB_HOST"
	EnvDBUser     = "FASHIONPLACE_DB_USER"
	EnvDBName     = "FASHIONPLACE_DB_NAME"
	EnvRedisURL   = "FASHIONPLACE_REDIS_URL"
	EnvJWTSecret  = "FASHIONPLACE_JWT_SECRET"
	EnvJWTIssuer  = "FASHIONPLACE_JWT_ISSUER"
	EnvJWTExpMins = "FASHIONPLACE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Session       SessionConfig
	AuthRateLimit AuthRateLimitConfig
	Stripe        StripeConfig
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
	Env          string `envconfig:"FASHIONPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"FASHIONPLACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FASHIONPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FASHIONPLACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FASHIONPLACE_DB_DSN"`
	Driver string `envconfig:"FASHIONPLACE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FASHIONPLACE_DB_HOST"`
	LegacyPort     int    `envconfig:"FASHIONPLACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FASHIONPLACE_DB_USER"`
	LegacyPassword string `envconfig:"FASHIONPLACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FASHIONPLACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FASHIONPLACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FASHIONPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FASHIONPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FASHIONPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FASHIONPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FASHIONPLACE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FASHIONPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"FASHIONPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FASHIONPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FASHIONPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FASHIONPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FASHIONPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FASHIONPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FASHIONPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FASHIONPLACE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FASHIONPLACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FASHIONPLACE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FASHIONPLACE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FASHIONPLACE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FASHIONPLACE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FASHIONPLACE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FASHIONPLACE_ARGON_KEY_LEN" default:"32"`
}

// SessionConfig governs anonymous cart session tokens held in Redis.
type SessionConfig struct {
	GuestTTLHours int `envconfig:"FASHIONPLACE_SESSION_GUEST_TTL_HOURS" default:"720"`
	MergeLockSecs int `envconfig:"FASHIONPLACE_SESSION_MERGE_LOCK_SECS" default:"10"`
}

func (s SessionConfig) GuestTTL() time.Duration {
	if s.GuestTTLHours <= 0 {
		return 0
	}
	return time.Duration(s.GuestTTLHours) * time.Hour
}

func (s SessionConfig) MergeLockTTL() time.Duration {
	if s.MergeLockSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.MergeLockSecs) * time.Second
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FASHIONPLACE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"FASHIONPLACE_STRIPE_API_KEY"`
	Env      string `envconfig:"FASHIONPLACE_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"FASHIONPLACE_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FASHIONPLACE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FASHIONPLACE_AUTO_MIGRATE" default:"false"`
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
