package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	ERP          ERPConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"ERPBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"ERPBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ERPBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ERPBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ERPBRIDGE_DB_DSN"`
	Driver string `envconfig:"ERPBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ERPBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"ERPBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ERPBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"ERPBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ERPBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ERPBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ERPBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ERPBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ERPBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ERPBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ERPBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ERPBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"ERPBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ERPBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ERPBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ERPBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ERPBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ERPBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ERPBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ERPConfig carries the remote system-of-record connection settings. The
// upstream platform passes most of these per-deployment; environment
// variables remain the fallback so a single bridge instance can run
// without request-scoped credentials.
type ERPConfig struct {
	BaseURL        string        `envconfig:"ERPBRIDGE_ERP_BASE_URL" required:"true"`
	Account        string        `envconfig:"ERPBRIDGE_ERP_ACCOUNT" required:"true"`
	ConsumerKey    string        `envconfig:"ERPBRIDGE_ERP_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"ERPBRIDGE_ERP_CONSUMER_SECRET"`
	TokenID        string        `envconfig:"ERPBRIDGE_ERP_TOKEN_ID" required:"true"`
	TokenSecret    string        `envconfig:"ERPBRIDGE_ERP_TOKEN_SECRET" required:"true"`
	APIVersion     string        `envconfig:"ERPBRIDGE_ERP_API_VERSION" default:"2023_2"`
	Sandbox        bool          `envconfig:"ERPBRIDGE_ERP_SANDBOX" default:"false"`
	ReadTimeout    time.Duration `envconfig:"ERPBRIDGE_ERP_READ_TIMEOUT" default:"240s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ERPBRIDGE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IngressDedupeTTL time.Duration `envconfig:"ERPBRIDGE_EVENTING_DEDUPE_TTL" default:"720h"`
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
