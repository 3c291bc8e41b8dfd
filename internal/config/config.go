package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the API.
type Config struct {
	Port             string
	TelegramBotToken string
	JWTSecret        string
	DatabaseURL      string
	DatabaseConfig   DatabaseConfig
	CloudinaryConfig CloudinaryConfig
	CacheConfig      CacheConfig
	AppEnv           string
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig holds the Cloudinary credentials for image uploads.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// CacheConfig holds the settings for the query cache.
type CacheConfig struct {
	// TTL applied to every cached view.
	TTL time.Duration
	// Capacity and NumShards size the in-process store.
	Capacity  int
	NumShards int
	// EvictionPercentage is how much of the store is dropped when full.
	EvictionPercentage int
}

// LoadConfig loads configuration from .env / environment variables.
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("no .env file found, falling back to environment variables")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "peerbay_user"),
		Password: getEnv("PGPASSWORD", "peerbay_pass"),
		Name:     getEnv("PGDATABASE", "peerbay"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	cloudinaryConfig := CloudinaryConfig{
		CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "peerbay"),
	}

	cacheConfig := CacheConfig{
		TTL:                getEnvDuration("CACHE_TTL", time.Hour),
		Capacity:           getEnvInt("CACHE_CAPACITY", 10000),
		NumShards:          getEnvInt("CACHE_SHARDS", 64),
		EvictionPercentage: getEnvInt("CACHE_EVICTION_PERCENT", 10),
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DatabaseURL:      dbURL,
		DatabaseConfig:   dbConfig,
		CloudinaryConfig: cloudinaryConfig,
		CacheConfig:      cacheConfig,
		AppEnv:           getEnv("APP_ENV", "production"),
	}

	if cfg.TelegramBotToken == "" || cfg.JWTSecret == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and JWT_SECRET must be set")
	}

	return cfg
}

// getEnv returns the environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return d
}
