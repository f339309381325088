package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Redis    RedisConfig
	Log      LogConfig
	CORS     CORSConfig
	Matching MatchingConfig
	Recon    ReconConfig
	Ingest   IngestConfig
	Email    EmailConfig
	Export   ExportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for the ingest drop folder and report
// archive.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	IncomingPrefix  string `mapstructure:"incoming_prefix"`
	ProcessedPrefix string `mapstructure:"processed_prefix"`
	FailedPrefix    string `mapstructure:"failed_prefix"`
	ReportPrefix    string `mapstructure:"report_prefix"`
	PresignExpiry   int64  `mapstructure:"presign_expiry"`
}

// RedisConfig holds Redis connection settings for the distributed claim
// store. When Addr is empty the in-memory claim store is used instead.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds the default tolerances and decision thresholds. Venues
// may override tolerances with a stored profile; the confirmation threshold
// and conflict band stay service-wide.
type MatchingConfig struct {
	DateWindowDays     int     `mapstructure:"date_window_days"`
	AmountProximityPct float64 `mapstructure:"amount_proximity_pct"`
	QtyTolRel          float64 `mapstructure:"qty_tol_rel"`
	QtyTolAbs          float64 `mapstructure:"qty_tol_abs"`
	PriceTolRel        float64 `mapstructure:"price_tol_rel"`
	FuzzyDescThreshold float64 `mapstructure:"fuzzy_desc_threshold"`
	ConfirmThreshold   float64 `mapstructure:"confirm_threshold"`
	ConflictBand       float64 `mapstructure:"conflict_band"`
	CandidateFloor     float64 `mapstructure:"candidate_floor"`
}

// ReconConfig holds batch reconciliation settings.
type ReconConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// IngestConfig holds drop-folder poll worker settings.
type IngestConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	PollIntervalSecs int  `mapstructure:"poll_interval_secs"`
	BatchSize        int  `mapstructure:"batch_size"`
}

// EmailConfig holds notification delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	OpsAddress  string `mapstructure:"ops_address"`
}

// ExportConfig holds report export settings.
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// Load reads configuration from environment variables with the DOCKMATCH_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCKMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "dockmatch")
	v.SetDefault("db.password", "dockmatch_secret")
	v.SetDefault("db.name", "dockmatch_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "dockmatch-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.incoming_prefix", "incoming/")
	v.SetDefault("s3.processed_prefix", "processed/")
	v.SetDefault("s3.failed_prefix", "failed/")
	v.SetDefault("s3.report_prefix", "reports/")
	v.SetDefault("s3.presign_expiry", 3600)

	// Redis defaults (empty addr = in-memory claim store)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Matching defaults
	v.SetDefault("matching.date_window_days", 3)
	v.SetDefault("matching.amount_proximity_pct", 5.0)
	v.SetDefault("matching.qty_tol_rel", 0.05)
	v.SetDefault("matching.qty_tol_abs", 0.0)
	v.SetDefault("matching.price_tol_rel", 0.02)
	v.SetDefault("matching.fuzzy_desc_threshold", 0.6)
	v.SetDefault("matching.confirm_threshold", 0.85)
	v.SetDefault("matching.conflict_band", 0.05)
	v.SetDefault("matching.candidate_floor", 0.15)

	// Recon defaults
	v.SetDefault("recon.concurrency", 4)

	// Ingest defaults
	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.poll_interval_secs", 30)
	v.SetDefault("ingest.batch_size", 25)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@dockmatch.io")
	v.SetDefault("email.from_name", "Dockmatch")
	v.SetDefault("email.ops_address", "")

	// Export defaults
	v.SetDefault("export.sheet_name", "Reconciliation")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "DOCKMATCH_SERVER_PORT",
		"server.read_timeout":           "DOCKMATCH_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "DOCKMATCH_SERVER_WRITE_TIMEOUT",
		"server.environment":            "DOCKMATCH_SERVER_ENVIRONMENT",
		"db.host":                       "DOCKMATCH_DB_HOST",
		"db.port":                       "DOCKMATCH_DB_PORT",
		"db.user":                       "DOCKMATCH_DB_USER",
		"db.password":                   "DOCKMATCH_DB_PASSWORD",
		"db.name":                       "DOCKMATCH_DB_NAME",
		"db.sslmode":                    "DOCKMATCH_DB_SSLMODE",
		"db.max_open":                   "DOCKMATCH_DB_MAX_OPEN",
		"db.max_idle":                   "DOCKMATCH_DB_MAX_IDLE",
		"s3.region":                     "DOCKMATCH_S3_REGION",
		"s3.bucket":                     "DOCKMATCH_S3_BUCKET",
		"s3.endpoint":                   "DOCKMATCH_S3_ENDPOINT",
		"s3.access_key":                 "DOCKMATCH_S3_ACCESS_KEY",
		"s3.secret_key":                 "DOCKMATCH_S3_SECRET_KEY",
		"s3.incoming_prefix":            "DOCKMATCH_S3_INCOMING_PREFIX",
		"s3.processed_prefix":           "DOCKMATCH_S3_PROCESSED_PREFIX",
		"s3.failed_prefix":              "DOCKMATCH_S3_FAILED_PREFIX",
		"s3.report_prefix":              "DOCKMATCH_S3_REPORT_PREFIX",
		"s3.presign_expiry":             "DOCKMATCH_S3_PRESIGN_EXPIRY",
		"redis.addr":                    "DOCKMATCH_REDIS_ADDR",
		"redis.password":                "DOCKMATCH_REDIS_PASSWORD",
		"redis.db":                      "DOCKMATCH_REDIS_DB",
		"log.level":                     "DOCKMATCH_LOG_LEVEL",
		"log.format":                    "DOCKMATCH_LOG_FORMAT",
		"cors.allowed_origins":          "DOCKMATCH_CORS_ALLOWED_ORIGINS",
		"matching.date_window_days":     "DOCKMATCH_MATCHING_DATE_WINDOW_DAYS",
		"matching.amount_proximity_pct": "DOCKMATCH_MATCHING_AMOUNT_PROXIMITY_PCT",
		"matching.qty_tol_rel":          "DOCKMATCH_MATCHING_QTY_TOL_REL",
		"matching.qty_tol_abs":          "DOCKMATCH_MATCHING_QTY_TOL_ABS",
		"matching.price_tol_rel":        "DOCKMATCH_MATCHING_PRICE_TOL_REL",
		"matching.fuzzy_desc_threshold": "DOCKMATCH_MATCHING_FUZZY_DESC_THRESHOLD",
		"matching.confirm_threshold":    "DOCKMATCH_MATCHING_CONFIRM_THRESHOLD",
		"matching.conflict_band":        "DOCKMATCH_MATCHING_CONFLICT_BAND",
		"matching.candidate_floor":      "DOCKMATCH_MATCHING_CANDIDATE_FLOOR",
		"recon.concurrency":             "DOCKMATCH_RECON_CONCURRENCY",
		"ingest.enabled":                "DOCKMATCH_INGEST_ENABLED",
		"ingest.poll_interval_secs":     "DOCKMATCH_INGEST_POLL_INTERVAL_SECS",
		"ingest.batch_size":             "DOCKMATCH_INGEST_BATCH_SIZE",
		"email.provider":                "DOCKMATCH_EMAIL_PROVIDER",
		"email.region":                  "DOCKMATCH_EMAIL_REGION",
		"email.from_address":            "DOCKMATCH_EMAIL_FROM_ADDRESS",
		"email.from_name":               "DOCKMATCH_EMAIL_FROM_NAME",
		"email.ops_address":             "DOCKMATCH_EMAIL_OPS_ADDRESS",
		"export.sheet_name":             "DOCKMATCH_EXPORT_SHEET_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCKMATCH_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCKMATCH_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:          v.GetString("s3.region"),
		Bucket:          v.GetString("s3.bucket"),
		Endpoint:        v.GetString("s3.endpoint"),
		AccessKey:       v.GetString("s3.access_key"),
		SecretKey:       v.GetString("s3.secret_key"),
		IncomingPrefix:  v.GetString("s3.incoming_prefix"),
		ProcessedPrefix: v.GetString("s3.processed_prefix"),
		FailedPrefix:    v.GetString("s3.failed_prefix"),
		ReportPrefix:    v.GetString("s3.report_prefix"),
		PresignExpiry:   v.GetInt64("s3.presign_expiry"),
	}
	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Matching = MatchingConfig{
		DateWindowDays:     v.GetInt("matching.date_window_days"),
		AmountProximityPct: v.GetFloat64("matching.amount_proximity_pct"),
		QtyTolRel:          v.GetFloat64("matching.qty_tol_rel"),
		QtyTolAbs:          v.GetFloat64("matching.qty_tol_abs"),
		PriceTolRel:        v.GetFloat64("matching.price_tol_rel"),
		FuzzyDescThreshold: v.GetFloat64("matching.fuzzy_desc_threshold"),
		ConfirmThreshold:   v.GetFloat64("matching.confirm_threshold"),
		ConflictBand:       v.GetFloat64("matching.conflict_band"),
		CandidateFloor:     v.GetFloat64("matching.candidate_floor"),
	}
	cfg.Recon = ReconConfig{
		Concurrency: v.GetInt("recon.concurrency"),
	}
	cfg.Ingest = IngestConfig{
		Enabled:          v.GetBool("ingest.enabled"),
		PollIntervalSecs: v.GetInt("ingest.poll_interval_secs"),
		BatchSize:        v.GetInt("ingest.batch_size"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		OpsAddress:  v.GetString("email.ops_address"),
	}
	cfg.Export = ExportConfig{
		SheetName: v.GetString("export.sheet_name"),
	}

	return cfg, nil
}
