package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for agsadmin.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	// ArcGIS Server connection
	AGSScheme       string
	AGSHost         string
	AGSPort         int
	AGSUsername     string
	AGSPassword     string
	TokenExpiration time.Duration
	HTTPTimeout     time.Duration // 0 keeps the transport default
	TLSInsecure     bool          // accept self-signed site certificates

	// Dispatcher pacing; RateLimitRPS <= 0 disables the limiter.
	RateLimitRPS   int
	RateLimitBurst int

	// Credential resolution: "env" uses AGSUsername/AGSPassword, "aws" reads
	// {env}/{host}/arcgis from AWS Secrets Manager.
	CredentialSource string
	AWSRegion        string
	CacheTTL         time.Duration
	CleanupFreq      time.Duration

	// Audit sinks; empty URLs disable the sink.
	NATSURL      string
	AuditSubject string
	AuditStream  string
	DatabaseURL  string

	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration

	// Serve mode
	RedisAddr        string
	RedisDB          int
	RedisPass        string
	ReportTTL        time.Duration
	RefreshInterval  time.Duration
	Port             int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:         GetEnv("SERVICE_NAME", "agsadmin"),
		Env:                 GetEnv("ENV", "dev"),
		LogLevel:            GetEnv("LOG_LEVEL", "info"),
		AGSScheme:           GetEnv("AGS_SCHEME", "http"),
		AGSHost:             GetEnv("AGS_HOST", "localhost"),
		AGSPort:             GetEnvInt("AGS_PORT", 6080),
		AGSUsername:         GetEnv("AGS_USERNAME", ""),
		AGSPassword:         GetEnv("AGS_PASSWORD", ""),
		TokenExpiration:     GetEnvDuration("AGS_TOKEN_EXPIRATION", 60*time.Minute),
		HTTPTimeout:         GetEnvDuration("AGS_HTTP_TIMEOUT", 0),
		TLSInsecure:         GetEnvBool("AGS_TLS_INSECURE", false),
		RateLimitRPS:        GetEnvInt("AGS_RATE_LIMIT_RPS", 0),
		RateLimitBurst:      GetEnvInt("AGS_RATE_LIMIT_BURST", 1),
		CredentialSource:    GetEnv("AGS_CREDENTIAL_SOURCE", "env"),
		AWSRegion:           GetEnv("AWS_REGION", "us-east-2"),
		CacheTTL:            GetEnvDuration("CACHE_TTL", 24*time.Hour),
		CleanupFreq:         GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),
		NATSURL:             GetEnv("NATS_URL", ""),
		AuditSubject:        GetEnv("AUDIT_SUBJECT", "evt.arcgis.admin.action.v1"),
		AuditStream:         GetEnv("AUDIT_STREAM", "ARCGIS_ADMIN"),
		DatabaseURL:         GetEnv("DATABASE_URL", ""),
		PGMaxConns:          GetEnvInt("PG_MAX_CONNS", 4),
		PGMinConns:          GetEnvInt("PG_MIN_CONNS", 1),
		PGMaxConnLifetime:   GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),
		RedisAddr:           GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             GetEnvInt("REDIS_DB", 0),
		RedisPass:           GetEnv("REDIS_PASS", ""),
		ReportTTL:           GetEnvDuration("REPORT_TTL", 2*time.Minute),
		RefreshInterval:     GetEnvDuration("REPORT_REFRESH_INTERVAL", 1*time.Minute),
		Port:                GetEnvInt("AGSADMIN_PORT", 9040),
		HTTPReadTimeout:     GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout:    GetEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:     GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
	}
}
