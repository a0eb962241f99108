package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MARKETPAY_DB_DSN"
	EnvDBHost = "MARKETPAY_DB_HOST"
	EnvDBUser = "MARKETPAY_DB_USER"
	EnvDBName = "MARKETPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	Ledger        LedgerConfig
	Notifications NotificationsConfig
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
	Env          string `envconfig:"MARKETPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MARKETPAY_DB_DSN"`

	LegacyHost     string `envconfig:"MARKETPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETPAY_DB_USER"`
	LegacyPassword string `envconfig:"MARKETPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPAY_REDIS_URL"`
	Address      string        `envconfig:"MARKETPAY_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKETPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETPAY_JWT_ISSUER" default:"marketpay"`
	ExpirationMinutes int    `envconfig:"MARKETPAY_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARKETPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARKETPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARKETPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARKETPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARKETPAY_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MARKETPAY_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MARKETPAY_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MARKETPAY_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MARKETPAY_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MARKETPAY_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MARKETPAY_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	TransferWindow     time.Duration `envconfig:"MARKETPAY_RATE_LIMIT_TRANSFER_WINDOW" default:"1m"`
	TransferIPLimit    int           `envconfig:"MARKETPAY_RATE_LIMIT_TRANSFER_IP_LIMIT" default:"10"`
}

// LedgerConfig tunes the commit retry loop. CommitRetries bounds how many
// times an operation re-runs after a serialization conflict.
type LedgerConfig struct {
	CommitRetries      int           `envconfig:"MARKETPAY_LEDGER_COMMIT_RETRIES" default:"3"`
	CommitRetryBackoff time.Duration `envconfig:"MARKETPAY_LEDGER_COMMIT_RETRY_BACKOFF" default:"25ms"`
}

type NotificationsConfig struct {
	QueueSize      int    `envconfig:"MARKETPAY_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
	ChannelPrefix  string `envconfig:"MARKETPAY_NOTIFICATIONS_CHANNEL_PREFIX" default:"mp:notify"`
	PublishEnabled bool   `envconfig:"MARKETPAY_NOTIFICATIONS_PUBLISH_ENABLED" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKETPAY_AUTO_MIGRATE" default:"false"`
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
