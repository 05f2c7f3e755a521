package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chainapsis/oko-sub000/internal/util"
)

// Database holds the PostgreSQL connection settings.
type Database struct {
	Host             string
	Port             int
	Username         string
	Password         string `json:"-"` // sensitive
	Database         string
	AdditionalParams map[string]string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ConnectionString builds a lib/pq compatible DSN.
func (c Database) ConnectionString() string {
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("user=%s", c.Username),
		fmt.Sprintf("password=%s", c.Password),
		fmt.Sprintf("dbname=%s", c.Database),
	}

	keys := make([]string, 0, len(c.AdditionalParams))
	for k := range c.AdditionalParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c.AdditionalParams[k]))
	}

	return strings.Join(parts, " ")
}

// EchoServer holds the HTTP server settings.
type EchoServer struct {
	ListenAddress                  string
	HideInternalServerErrorDetails bool
	EnableRecoverMiddleware        bool
	EnableRequestIDMiddleware      bool
	EnableLoggerMiddleware         bool
}

// AuthServer holds the bearer-token settings. An empty secret disables the
// auth middleware (identity is then trusted as declared in the body).
type AuthServer struct {
	Secret        string `json:"-"` // sensitive
	Issuer        string
	TokenDuration time.Duration
}

// Redis holds the optional session cache settings.
type Redis struct {
	Enabled    bool
	Endpoint   string
	SessionTTL time.Duration
}

// TSS holds settings specific to the TSS core.
type TSS struct {
	// StageDataPassphrase enables at-rest encryption of stage_data when set
	StageDataPassphrase string `json:"-"` // sensitive
}

// Logger holds the zerolog settings.
type Logger struct {
	Level              string
	PrettyPrintConsole bool
}

// Server is the aggregated service configuration.
type Server struct {
	Database Database
	Echo     EchoServer
	Auth     AuthServer
	Redis    Redis
	TSS      TSS
	Logger   Logger
}

// DefaultServiceConfigFromEnv returns the server config as parsed from the
// environment, with sane development defaults.
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Database: Database{
			Host:     util.GetEnv("PGHOST", "postgres"),
			Port:     util.GetEnvAsInt("PGPORT", 5432),
			Username: util.GetEnv("PGUSER", "dbuser"),
			Password: util.GetEnv("PGPASSWORD", ""),
			Database: util.GetEnv("PGDATABASE", "development"),
			AdditionalParams: map[string]string{
				"sslmode": util.GetEnv("PGSSLMODE", "disable"),
			},
			MaxOpenConns:    util.GetEnvAsInt("DB_MAX_OPEN_CONNS", 30),
			MaxIdleConns:    util.GetEnvAsInt("DB_MAX_IDLE_CONNS", 15),
			ConnMaxLifetime: util.GetEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Echo: EchoServer{
			ListenAddress:                  util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8080"),
			HideInternalServerErrorDetails: util.GetEnvAsBool("SERVER_ECHO_HIDE_INTERNAL_SERVER_ERROR_DETAILS", true),
			EnableRecoverMiddleware:        util.GetEnvAsBool("SERVER_ECHO_ENABLE_RECOVER_MIDDLEWARE", true),
			EnableRequestIDMiddleware:      util.GetEnvAsBool("SERVER_ECHO_ENABLE_REQUEST_ID_MIDDLEWARE", true),
			EnableLoggerMiddleware:         util.GetEnvAsBool("SERVER_ECHO_ENABLE_LOGGER_MIDDLEWARE", true),
		},
		Auth: AuthServer{
			Secret:        util.GetEnv("SERVER_AUTH_SECRET", ""),
			Issuer:        util.GetEnv("SERVER_AUTH_ISSUER", "oko-tss"),
			TokenDuration: util.GetEnvAsDuration("SERVER_AUTH_TOKEN_DURATION", 15*time.Minute),
		},
		Redis: Redis{
			Enabled:    util.GetEnvAsBool("SERVER_REDIS_ENABLED", false),
			Endpoint:   util.GetEnv("SERVER_REDIS_ENDPOINT", "redis:6379"),
			SessionTTL: util.GetEnvAsDuration("SERVER_REDIS_SESSION_TTL", 5*time.Minute),
		},
		TSS: TSS{
			StageDataPassphrase: util.GetEnv("SERVER_TSS_STAGE_DATA_PASSPHRASE", ""),
		},
		Logger: Logger{
			Level:              util.GetEnv("SERVER_LOGGER_LEVEL", "info"),
			PrettyPrintConsole: util.GetEnvAsBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false),
		},
	}
}
