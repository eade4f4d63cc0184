package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	AppMode string

	Telegram  TelegramConfig
	Storage   StorageConfig
	Batch     BatchConfig
	Quota     QuotaConfig
	Media     MediaConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Allowlist AllowlistConfig
	Admin     AdminConfig
}

type TelegramConfig struct {
	Token          string
	PollTimeoutSec int
}

type StorageConfig struct {
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	BaseFolder  string
	StagingDir  string
	CallTimeout time.Duration
	ProbeWrites bool
}

type BatchConfig struct {
	MinIdentifierLen int
	MaxIdentifierLen int
	IdleTimeout      time.Duration
}

// QuotaConfig sets the per-batch count ceilings for each media category.
type QuotaConfig struct {
	MaxPhotos    uint
	MaxVideos    uint
	MaxDocuments uint
}

// MediaConfig sets per-category size ceilings (bytes) and extension allow-lists.
type MediaConfig struct {
	MaxPhotoBytes    int64
	MaxVideoBytes    int64
	MaxDocumentBytes int64

	PhotoExtensions    []string
	VideoExtensions    []string
	DocumentExtensions []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	DSN string
}

// AllowlistConfig selects the authorized-user list backend:
// "memory", "redis" or "postgres".
type AllowlistConfig struct {
	Backend string
	Seed    []string
}

type AdminConfig struct {
	Enabled bool
	Port    string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppMode: getEnv("APP_MODE", "development"),
		Telegram: TelegramConfig{
			Token:          getEnv("TELEGRAM_TOKEN", ""),
			PollTimeoutSec: getEnvAsInt("TELEGRAM_POLL_TIMEOUT_SEC", 30),
		},
		Storage: StorageConfig{
			Region:      getEnv("S3_REGION", "us-east-1"),
			Bucket:      getEnv("S3_BUCKET", ""),
			AccessKey:   getEnv("S3_ACCESS_KEY", ""),
			SecretKey:   getEnv("S3_SECRET_KEY", ""),
			Endpoint:    getEnv("S3_ENDPOINT", ""),
			BaseFolder:  getEnv("BASE_FOLDER", "invoices"),
			StagingDir:  getEnv("STAGING_DIR", os.TempDir()),
			CallTimeout: getEnvAsDuration("STORAGE_CALL_TIMEOUT_SEC", 30),
			ProbeWrites: getEnvAsBool("STORAGE_PROBE_WRITES", false),
		},
		Batch: BatchConfig{
			MinIdentifierLen: getEnvAsInt("BATCH_MIN_LEN", 3),
			MaxIdentifierLen: getEnvAsInt("BATCH_MAX_LEN", 50),
			IdleTimeout:      getEnvAsDuration("SESSION_IDLE_TIMEOUT_SEC", 1800),
		},
		Quota: QuotaConfig{
			MaxPhotos:    uint(getEnvAsInt("QUOTA_MAX_PHOTOS", 50)),
			MaxVideos:    uint(getEnvAsInt("QUOTA_MAX_VIDEOS", 10)),
			MaxDocuments: uint(getEnvAsInt("QUOTA_MAX_DOCUMENTS", 20)),
		},
		Media: MediaConfig{
			MaxPhotoBytes:      getEnvAsInt64("MAX_PHOTO_BYTES", 20<<20),
			MaxVideoBytes:      getEnvAsInt64("MAX_VIDEO_BYTES", 200<<20),
			MaxDocumentBytes:   getEnvAsInt64("MAX_DOCUMENT_BYTES", 50<<20),
			PhotoExtensions:    getEnvAsSlice("PHOTO_EXTENSIONS", []string{".jpg", ".jpeg", ".png", ".webp"}),
			VideoExtensions:    getEnvAsSlice("VIDEO_EXTENSIONS", []string{".mp4", ".mov", ".avi"}),
			DocumentExtensions: getEnvAsSlice("DOCUMENT_EXTENSIONS", []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt"}),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN: getEnv("POSTGRES_DSN", ""),
		},
		Allowlist: AllowlistConfig{
			Backend: getEnv("ALLOWLIST_BACKEND", "memory"),
			Seed:    getEnvAsSlice("ALLOWED_USERS", nil),
		},
		Admin: AdminConfig{
			Enabled: getEnvAsBool("ADMIN_ENABLED", true),
			Port:    getEnv("ADMIN_PORT", "8080"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a whole number of seconds.
func getEnvAsDuration(key string, fallbackSec int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackSec)) * time.Second
}

func getEnvAsSlice(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
