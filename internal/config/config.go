package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port       string
	Env        string
	DBDriver   string
	DBDSN      string
	JWTSecret  string
	JWTTTL     time.Duration
	SessionKey string

	UploadDir      string
	UploadMaxBytes int64
	S3Bucket       string
	S3Region       string

	RedisURL  string
	AMQPURL   string
	AMQPQueue string

	StripeSecretKey string
	PaymentCurrency string

	AllowedOrigins     []string
	RateLimitPerMinute int
	PageSize           int
}

// Load reads .env files (current, parent and repo root, like when started from cmd/server)
// and then the process environment.
func Load() (*Config, error) {
	for _, f := range []string{".env", "../.env", "../../.env"} {
		if godotenv.Overload(f) == nil {
			break
		}
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("SESSION_SECRET", "dev_fallback_secret")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AMQP_QUEUE", "order_events")
	v.SetDefault("PAYMENT_CURRENCY", "inr")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
	v.SetDefault("PAGE_SIZE", 5)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:               v.GetString("APP_PORT"),
		Env:                v.GetString("APP_ENV"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:              v.GetString("DB_DSN"),
		JWTSecret:          strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		SessionKey:         v.GetString("SESSION_SECRET"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		UploadMaxBytes:     v.GetInt64("UPLOAD_MAX_BYTES"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Region:           v.GetString("AWS_REGION"),
		RedisURL:           v.GetString("REDIS_URL"),
		AMQPURL:            v.GetString("AMQP_URL"),
		AMQPQueue:          v.GetString("AMQP_QUEUE"),
		StripeSecretKey:    v.GetString("STRIPE_SECRET_KEY"),
		PaymentCurrency:    strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		PageSize:           v.GetInt("PAGE_SIZE"),
	}
	for _, o := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(strings.TrimSuffix(o, "/")); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is empty (check your .env)")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is empty")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = time.Hour
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5
	}
	return cfg, nil
}
