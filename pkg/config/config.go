package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VENDIMIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VENDIMIA_DB_DSN"
	EnvDBHost = "VENDIMIA_DB_HOST"
	EnvDBUser = "VENDIMIA_DB_USER"
	EnvDBName = "VENDIMIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Models       ModelsConfig
	Forecast     ForecastConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// The sqlite flag overrides the driver; the DSN is then a file path.
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDIMIA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDIMIA_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"VENDIMIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDIMIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDIMIA_DB_DSN"`
	Driver string `envconfig:"VENDIMIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDIMIA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDIMIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDIMIA_DB_USER"`
	LegacyPassword string `envconfig:"VENDIMIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDIMIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDIMIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDIMIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDIMIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDIMIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDIMIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDIMIA_REDIS_URL"`
	Address      string        `envconfig:"VENDIMIA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDIMIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDIMIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDIMIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDIMIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDIMIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDIMIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDIMIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured. The prediction
// cache is optional and the service runs without it.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type ModelsConfig struct {
	Dir string `envconfig:"VENDIMIA_MODELS_DIR" default:"modelos"`
}

type ForecastConfig struct {
	DefaultHistoryDays  int           `envconfig:"VENDIMIA_FORECAST_HISTORY_DAYS" default:"90"`
	DefaultHorizonDays  int           `envconfig:"VENDIMIA_FORECAST_HORIZON_DAYS" default:"90"`
	ProductHorizonDays  int           `envconfig:"VENDIMIA_FORECAST_PRODUCT_HORIZON_DAYS" default:"7"`
	RecentSalesDays     int           `envconfig:"VENDIMIA_FORECAST_RECENT_SALES_DAYS" default:"15"`
	TrendSlopeThreshold float64       `envconfig:"VENDIMIA_FORECAST_TREND_SLOPE_THRESHOLD" default:"-10.0"`
	PredictionCacheTTL  time.Duration `envconfig:"VENDIMIA_FORECAST_PREDICTION_CACHE_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDIMIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDIMIA_AUTO_MIGRATE" default:"false"`
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
