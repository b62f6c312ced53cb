package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	Reports       ReportsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"HELADERIA_APP_ENV" required:"true"`
	Port         string   `envconfig:"HELADERIA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"HELADERIA_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"HELADERIA_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"HELADERIA_LOG_WARN_STACK" default:"false"`
	Timezone     string   `envconfig:"HELADERIA_TIMEZONE" default:"America/Santiago"`
	CORSOrigins  []string `envconfig:"HELADERIA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the shop's business time zone; calendar days for
// promotions and expiry are evaluated in it.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

type DBConfig struct {
	DSN    string `envconfig:"HELADERIA_DB_DSN"`
	Driver string `envconfig:"HELADERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HELADERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"HELADERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HELADERIA_DB_USER"`
	LegacyPassword string `envconfig:"HELADERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"HELADERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"HELADERIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HELADERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HELADERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HELADERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HELADERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"HELADERIA_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HELADERIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HELADERIA_REDIS_ADDR"`
	Password     string        `envconfig:"HELADERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"HELADERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HELADERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HELADERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HELADERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HELADERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HELADERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HELADERIA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HELADERIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HELADERIA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HELADERIA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL is how long a minted JWT stays valid.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HELADERIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HELADERIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HELADERIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HELADERIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HELADERIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HELADERIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"HELADERIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HELADERIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"HELADERIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"HELADERIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"HELADERIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HELADERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HELADERIA_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	MergePolicy string        `envconfig:"HELADERIA_CART_MERGE_POLICY" default:"cap"`
	TTL         time.Duration `envconfig:"HELADERIA_CART_TTL" default:"72h"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.MergePolicy)) {
	case CartMergeCap, CartMergeUncapped:
		return nil
	default:
		return fmt.Errorf("%s must be one of %q or %q", EnvCartMergePolicy, CartMergeCap, CartMergeUncapped)
	}
}

type ReportsConfig struct {
	CatalogExpiryDays   int `envconfig:"HELADERIA_REPORT_CATALOG_EXPIRY_DAYS" default:"7"`
	DashboardExpiryDays int `envconfig:"HELADERIA_REPORT_DASHBOARD_EXPIRY_DAYS" default:"30"`
	TopN                int `envconfig:"HELADERIA_REPORT_TOP_N" default:"5"`
	RecentSales         int `envconfig:"HELADERIA_REPORT_RECENT_SALES" default:"5"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:heladeria.db?_foreign_keys=on"
		return nil
	}

	parts := map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName}
	var missing []string
	for _, env := range legacyDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is not set and neither is %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
