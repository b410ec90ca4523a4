package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	PublicURL   string `env:"PUBLIC_URL" env-default:"http://localhost:8080"`

	HTTP struct {
		Port              string        `env:"PORT" env-default:"8080"`
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s"`
		ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"2m"`
		WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m"`
		IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m"`
		AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
		MetricsPath       string        `env:"HTTP_METRICS_PATH" env-default:"/metrics"`
		ShutdownTimeout   time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s"`
	}

	Database struct {
		URL             string        `env:"DATABASE_URL"`
		MaxConns        int32         `env:"DATABASE_MAX_CONNS" env-default:"25"`
		MinConns        int32         `env:"DATABASE_MIN_CONNS" env-default:"5"`
		ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" env-default:"1h"`
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONN_MAX_IDLE_TIME" env-default:"30m"`
		SimpleProtocol  bool          `env:"DATABASE_SIMPLE_PROTOCOL" env-default:"false"`
	}

	Redis struct {
		URL      string `env:"REDIS_URL"`
		Password string `env:"REDIS_PASSWORD"`
	}

	Auth struct {
		JWTSecret       string        `env:"JWT_SECRET"`
		AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TTL" env-default:"1h"`
		RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TTL" env-default:"720h"`
		BcryptCost      int           `env:"BCRYPT_COST" env-default:"12"`
		TOTPIssuer      string        `env:"TOTP_ISSUER" env-default:"Gradii"`
	}

	SMTP struct {
		Host      string `env:"SMTP_HOST" env-default:"localhost"`
		Port      string `env:"SMTP_PORT" env-default:"587"`
		Username  string `env:"SMTP_USERNAME"`
		Password  string `env:"SMTP_PASSWORD"`
		FromEmail string `env:"SMTP_FROM_EMAIL" env-default:"noreply@gradii.ai"`
		FromName  string `env:"SMTP_FROM_NAME" env-default:"Gradii"`
	}

	Storage struct {
		Provider          string        `env:"STORAGE_PROVIDER" env-default:"azure"`
		Bucket            string        `env:"STORAGE_BUCKET" env-default:"recordings"`
		Region            string        `env:"STORAGE_REGION" env-default:"us-east-1"`
		Endpoint          string        `env:"STORAGE_ENDPOINT"`
		AccessKey         string        `env:"STORAGE_ACCESS_KEY"`
		SecretKey         string        `env:"STORAGE_SECRET_KEY"`
		AzureAccountName  string        `env:"AZURE_STORAGE_ACCOUNT_NAME"`
		AzureAccountKey   string        `env:"AZURE_STORAGE_ACCOUNT_KEY"`
		AzureServiceURL   string        `env:"AZURE_STORAGE_SERVICE_URL"`
		SignedURLTTL      time.Duration `env:"STORAGE_SIGNED_URL_TTL" env-default:"15m"`
		MaxRecordingBytes int64         `env:"MAX_RECORDING_BYTES" env-default:"524288000"`
		MaxResumeBytes    int64         `env:"MAX_RESUME_BYTES" env-default:"5242880"`
		ClamAVAddress     string        `env:"CLAMAV_ADDRESS"`
	}

	LLM struct {
		Provider     string `env:"LLM_PROVIDER" env-default:"openai"`
		OpenAIAPIKey string `env:"OPENAI_API_KEY"`
		OpenAIModel  string `env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
		OpenAIBase   string `env:"OPENAI_BASE_URL"`
		GeminiAPIKey string `env:"GEMINI_API_KEY"`
		GeminiModel  string `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
	}

	SSO struct {
		SPCertificatePEM string `env:"SSO_SP_CERT_PEM"`
		SPPrivateKeyPEM  string `env:"SSO_SP_KEY_PEM"`
		GoogleClientID   string `env:"GOOGLE_CLIENT_ID"`
		GoogleSecret     string `env:"GOOGLE_CLIENT_SECRET"`
		MicrosoftTenant  string `env:"MICROSOFT_TENANT" env-default:"common"`
	}

	Billing struct {
		WebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`
		TrialDays     int    `env:"BILLING_TRIAL_DAYS" env-default:"14"`
	}

	RateLimit struct {
		WindowSeconds           int `env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
		LoginThreshold          int `env:"RATE_LIMIT_LOGIN_THRESHOLD" env-default:"10"`
		GlobalThreshold         int `env:"RATE_LIMIT_GLOBAL_THRESHOLD" env-default:"100"`
		FailedLoginBlockMinutes int `env:"FAILED_LOGIN_BLOCK_MINUTES" env-default:"15"`
		FailedLoginMaxAttempts  int `env:"FAILED_LOGIN_MAX_ATTEMPTS" env-default:"5"`
		UploadsPerHour          int `env:"RATE_LIMIT_UPLOADS_PER_HOUR" env-default:"20"`
	}

	Worker struct {
		Enabled    bool `env:"WORKER_ENABLED" env-default:"true"`
		MaxWorkers int  `env:"WORKER_MAX_WORKERS" env-default:"10"`
	}

	AuditLogToDB bool `env:"AUDIT_LOG_TO_DB" env-default:"true"`
}

func LoadConfig() (*Config, error) {
	// .env is only present locally
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	if cfg.Database.URL == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.Redis.URL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET not configured. Tokens cannot be issued.")
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
