package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the backend reads from the environment.
type Config struct {
	Port string

	Database Database
	Auth     Auth
	Storage  Storage
	Model    Model

	CORSAllowedOrigins []string
	TrustedProxies     []string
	RateLimitRPS       float64
	RateLimitBurst     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	NATSURL string

	LogLevel  string
	LogFormat string
}

// Database selects the gorm dialect and its connection parameters.
type Database struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	LogLevel string
}

type Auth struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Storage configures the S3-compatible image host.
type Storage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Enabled reports whether uploads can be served at all.
func (s Storage) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Model configures the object-detection model used by /ia/predict.
type Model struct {
	Path          string
	LabelsPath    string
	RuntimeLib    string
	InputSize     int
	Confidence    float64
	IoU           float64
	MaxDetections int
}

func (m Model) Enabled() bool {
	return m.Path != ""
}

// Load reads envFile (when it exists) into the process environment and then
// builds a Config. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port: GetEnvAsString("PORT", "8080"),
		Database: Database{
			Driver:   strings.ToLower(GetEnvAsString("DB_DRIVER", "postgres")),
			DSN:      os.Getenv("DB_DSN"),
			Host:     GetEnvAsString("DB_HOST", "localhost"),
			Port:     GetEnvAsString("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  GetEnvAsString("DB_SSLMODE", "disable"),
			LogLevel: GetEnvAsString("DB_LOG_LEVEL", "warn"),
		},
		Auth: Auth{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  time.Duration(GetEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		},
		Storage: Storage{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    GetEnvAsString("STORAGE_BUCKET", "vitia"),
			UseSSL:    GetEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL: os.Getenv("STORAGE_PUBLIC_URL"),
		},
		Model: Model{
			Path:          os.Getenv("MODEL_PATH"),
			LabelsPath:    os.Getenv("MODEL_LABELS"),
			RuntimeLib:    os.Getenv("ONNXRUNTIME_LIB"),
			InputSize:     GetEnvAsInt("MODEL_INPUT_SIZE", 640),
			Confidence:    GetEnvAsFloat("MODEL_CONFIDENCE", 0.25),
			IoU:           GetEnvAsFloat("MODEL_IOU", 0.45),
			MaxDetections: GetEnvAsInt("MODEL_MAX_DETECTIONS", 300),
		},
		CORSAllowedOrigins: splitList(GetEnvAsString("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
		RateLimitRPS:       GetEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     GetEnvAsInt("RATE_LIMIT_BURST", 10),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            GetEnvAsInt("REDIS_DB", 0),
		CacheTTL:           GetEnvAsDuration("CACHE_TTL", 5*time.Minute),
		NATSURL:            os.Getenv("NATS_URL"),
		LogLevel:           GetEnvAsString("LOG_LEVEL", "info"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
	}

	if cfg.Storage.PublicURL == "" && cfg.Storage.Endpoint != "" {
		scheme := "http"
		if cfg.Storage.UseSSL {
			scheme = "https"
		}
		cfg.Storage.PublicURL = scheme + "://" + cfg.Storage.Endpoint
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported value %q", c.Database.Driver))
	}
	if c.Model.Enabled() && c.Model.LabelsPath == "" {
		errs = append(errs, errors.New("MODEL_LABELS is required when MODEL_PATH is set"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
