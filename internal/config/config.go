package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	AppURL      string
	Port        string
	AppTimezone string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret            string
	JWTExpiry            time.Duration
	TokenMagicLinkExpiry time.Duration
	InvitationExpiry     time.Duration
	VaultKey             string // 32 bytes, hex encoded
	BuilderAPIToken      string // Bearer token for the build worker status API

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration

	// Media processing
	MediaMaxDimension int
	MediaJPEGQuality  int

	// Voice assistant provider
	VoiceAPIURL        string
	VoiceAPIKey        string
	VoiceWebhookSecret string

	// AI risk assessment (optional, heuristic fallback when empty)
	GeminiAPIKey     string
	GeminiModel      string
	AppDevAutoAssess bool

	// Feature-request console polling
	AppDevPollActive time.Duration
	AppDevPollIdle   time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:     envString("APP_NAME", "Spaces"),
		AppEnv:      envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:      envRequired("APP_URL"), // Required: base URL for invitation and login links
		Port:        envString("PORT", "8090"),
		AppTimezone: envString("APP_TIMEZONE", "America/Chicago"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/spaces.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:            envRequired("JWT_SECRET"),
		JWTExpiry:            envDuration("JWT_EXPIRY", 168*time.Hour),               // 7 days
		TokenMagicLinkExpiry: envDuration("TOKEN_MAGIC_LINK_EXPIRY", 15*time.Minute), // 15 minutes
		InvitationExpiry:     envDuration("INVITATION_EXPIRY", 168*time.Hour),        // 7 days
		VaultKey:             envRequired("VAULT_KEY"),
		BuilderAPIToken:      envString("BUILDER_API_TOKEN", ""),

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:        envRequired("S3_REGION"),
		S3Bucket:        envRequired("S3_BUCKET"),
		S3AccessKey:     envRequired("S3_ACCESS_KEY"),
		S3SecretKey:     envRequired("S3_SECRET_KEY"),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 24*time.Hour),

		// Media
		MediaMaxDimension: envInt("MEDIA_MAX_DIMENSION", 2048),
		MediaJPEGQuality:  envInt("MEDIA_JPEG_QUALITY", 82),

		// Voice
		VoiceAPIURL:        envString("VOICE_API_URL", "https://api.vapi.ai"),
		VoiceAPIKey:        envString("VOICE_API_KEY", ""),
		VoiceWebhookSecret: envString("VOICE_WEBHOOK_SECRET", ""),

		// AI
		GeminiAPIKey:     envString("GEMINI_API_KEY", ""),
		GeminiModel:      envString("GEMINI_MODEL", "gemini-2.5-flash"),
		AppDevAutoAssess: envBool("APPDEV_AUTO_ASSESS", true),

		// Polling
		AppDevPollActive: envDuration("APPDEV_POLL_ACTIVE", 5*time.Second),
		AppDevPollIdle:   envDuration("APPDEV_POLL_IDLE", 30*time.Second),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.BuilderAPIToken == "" {
		slog.Warn("BUILDER_API_TOKEN not set, build status updates will be rejected")
	}
	if cfg.VoiceWebhookSecret == "" {
		slog.Warn("VOICE_WEBHOOK_SECRET not set, voice webhooks will be rejected")
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location returns the property timezone, falling back to UTC when the
// configured name is unknown to the host tz database.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		slog.Warn("config invalid timezone, using UTC", "timezone", c.AppTimezone, "error", err)
		return time.UTC
	}
	return loc
}

// Sanitized returns a copy of the config with only public/safe fields.
// Safe to expose in ctx and templates.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:     c.AppName,
		AppEnv:      c.AppEnv,
		AppURL:      c.AppURL,
		Port:        c.Port,
		AppTimezone: c.AppTimezone,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,

		S3Endpoint: c.S3Endpoint, // Needed for CSP policies

		AppDevPollActive: c.AppDevPollActive,
		AppDevPollIdle:   c.AppDevPollIdle,
	}
}
