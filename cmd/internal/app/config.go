package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	// WriteTimeout of zero disables the server write deadline. The event
	// stream endpoints hold their response open indefinitely, so a
	// non-zero value silently kills dashboard connections.
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Directory for stored proof-of-delivery and invoice files.
	UploadDir string

	// Interval between ping frames on idle stream connections.
	HeartbeatInterval time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("FREIGHT_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("FREIGHT_LOG_LEVEL", "info"),
		LogFormat: EnvString("FREIGHT_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("FREIGHT_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("FREIGHT_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("FREIGHT_HTTP_WRITE_TIMEOUT", 0),
		IdleTimeout:       EnvDuration("FREIGHT_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("FREIGHT_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("FREIGHT_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("FREIGHT_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("FREIGHT_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("FREIGHT_READINESS_REQUIRE_DB", false),

		UploadDir: EnvString("FREIGHT_UPLOAD_DIR", "uploads"),

		HeartbeatInterval: EnvDuration("FREIGHT_STREAM_HEARTBEAT", 15*time.Second),

		CORSAllowedOrigins:   EnvCSV("FREIGHT_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("FREIGHT_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("FREIGHT_CORS_MAX_AGE_SECONDS", 600),
	}
}
