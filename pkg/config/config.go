package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VINOCAVE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VINOCAVE_DB_DSN"
	EnvDBHost = "VINOCAVE_DB_HOST"
	EnvDBUser = "VINOCAVE_DB_USER"
	EnvDBName = "VINOCAVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Fees         FeesConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"VINOCAVE_APP_ENV" required:"true"`
	Port         string `envconfig:"VINOCAVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VINOCAVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VINOCAVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VINOCAVE_DB_DSN"`
	Driver string `envconfig:"VINOCAVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VINOCAVE_DB_HOST"`
	LegacyPort     int    `envconfig:"VINOCAVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VINOCAVE_DB_USER"`
	LegacyPassword string `envconfig:"VINOCAVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VINOCAVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VINOCAVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VINOCAVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VINOCAVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VINOCAVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VINOCAVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VINOCAVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VINOCAVE_REDIS_ADDR"`
	Password     string        `envconfig:"VINOCAVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VINOCAVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VINOCAVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VINOCAVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VINOCAVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VINOCAVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VINOCAVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VINOCAVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VINOCAVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VINOCAVE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VINOCAVE_AUTO_MIGRATE" default:"false"`
}

// FeesConfig controls the marketplace cut applied at sale confirmation.
type FeesConfig struct {
	PolicyVersion int `envconfig:"VINOCAVE_FEE_POLICY_VERSION" default:"1"`
	RateBps       int `envconfig:"VINOCAVE_FEE_RATE_BPS" default:"1000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VINOCAVE_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"VINOCAVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"VINOCAVE_PUBSUB_DOMAIN_TOPIC" default:"vc-domain-events"`
	DomainSubscription string `envconfig:"VINOCAVE_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VINOCAVE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VINOCAVE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VINOCAVE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
