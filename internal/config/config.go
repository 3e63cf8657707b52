// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minLinkSecretBytes is the minimum length of GUEST_LINK_SECRET. Shorter
// secrets fail validation at boot; there is no development fallback.
const minLinkSecretBytes = 32

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// GuestLinkSecret signs guest magic-link capability tokens (HS256). Required,
	// minimum 32 bytes. Deliberately separate from any session/account secret.
	GuestLinkSecret string `mapstructure:"GUEST_LINK_SECRET"`
	// GuestLinkTTL is the capability token lifetime (e.g. "48h").
	GuestLinkTTL string `mapstructure:"GUEST_LINK_TTL"`
	// GuestLinkIssuer is the iss claim on capability tokens.
	GuestLinkIssuer string `mapstructure:"GUEST_LINK_ISSUER"`
	// OTPTTL is the passcode challenge lifetime (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the lockout ceiling for the OTP path.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// DOBMaxAttempts is the lockout ceiling for the date-of-birth fallback path.
	// Both paths share one attempts counter; this cap only applies a higher limit.
	DOBMaxAttempts int `mapstructure:"DOB_MAX_ATTEMPTS"`
	// DownloadGrantTTL is the lifetime of presigned download URLs (e.g. "5m").
	DownloadGrantTTL string `mapstructure:"DOWNLOAD_GRANT_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for passcode hashing; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SMSLocalAPIKey is the API key for SMS Local passcode delivery.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`

	// MinioEndpoint is the S3-compatible object store host:port holding result PDFs.
	MinioEndpoint string `mapstructure:"MINIO_ENDPOINT"`
	// MinioAccessKey is the object store access key.
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	// MinioSecretKey is the object store secret key.
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	// MinioBucket is the bucket containing encrypted result objects.
	MinioBucket string `mapstructure:"MINIO_BUCKET"`
	// MinioUseSSL enables TLS for object store connections.
	MinioUseSSL bool `mapstructure:"MINIO_USE_SSL"`

	// OTPReturnToClient when true enables dev OTP mode: no SMS, OTP retrievable
	// via GET /dev/guest/otp. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, the HTTP server emits
	// guest-access events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of broker addresses.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for guest-access events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs.
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("GUEST_LINK_SECRET", "")
	v.SetDefault("GUEST_LINK_TTL", "48h")
	v.SetDefault("GUEST_LINK_ISSUER", "lab-results-portal")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("DOB_MAX_ATTEMPTS", 5)
	v.SetDefault("DOWNLOAD_GRANT_TTL", "5m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("MINIO_BUCKET", "lab-results")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "guest-access-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "guest-access-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if len(cfg.GuestLinkSecret) < minLinkSecretBytes {
		return nil, errors.New("config: GUEST_LINK_SECRET must be set and at least 32 bytes; refusing to start without strong link-signing material")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.OTPMaxAttempts <= 0 {
		return nil, errors.New("config: OTP_MAX_ATTEMPTS must be positive")
	}
	if cfg.DOBMaxAttempts < cfg.OTPMaxAttempts {
		return nil, errors.New("config: DOB_MAX_ATTEMPTS must not be lower than OTP_MAX_ATTEMPTS (the paths share one attempts counter)")
	}

	return &cfg, nil
}

// LinkTTL parses GuestLinkTTL as a time.Duration. Returns 48h if unset or invalid.
func (c *Config) LinkTTL() time.Duration {
	d, err := time.ParseDuration(c.GuestLinkTTL)
	if err != nil || d <= 0 {
		return 48 * time.Hour
	}
	return d
}

// ChallengeTTL parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GrantTTL parses DownloadGrantTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) GrantTTL() time.Duration {
	d, err := time.ParseDuration(c.DownloadGrantTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
