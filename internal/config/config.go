// Package config reads all runtime settings from environment variables.
// The file-type allow-list and the thumbnail target size are deliberately
// compile-time constants elsewhere, not configuration.
package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds the PostgreSQL connection and pooling settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds the object-storage settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig aggregates every setting the service needs. Secrets only ever
// arrive through the environment.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load builds the config from the environment. A .env file is honored when
// main imports godotenv's autoload; real environment variables win over it.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  envStr("APP_HOST", "localhost:8080"),
		Port:     envStr("PORT", "8080"),
		Database: loadDatabase(),
		MinIO:    loadMinIO(),
	}
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:               envStr("DB_HOST", ""),
		Port:               envStr("DB_PORT", "5432"),
		User:               envStr("DB_USER", ""),
		Password:           envStr("DB_PASSWORD", ""),
		Name:               envStr("DB_NAME", ""),
		SSLMode:            envStr("DB_SSLMODE", "disable"),
		MaxOpenConns:       envInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:       envInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetimeSec: envInt("DB_CONN_MAX_LIFETIME_SEC", 300),
	}
}

func loadMinIO() MinIOConfig {
	return MinIOConfig{
		Endpoint:  envStr("MINIO_ENDPOINT", ""),
		AccessKey: envStr("MINIO_ACCESS_KEY", ""),
		SecretKey: envStr("MINIO_SECRET_KEY", ""),
		Bucket:    envStr("MINIO_BUCKET", "documents"),
		UseSSL:    envBool("MINIO_USE_SSL", false),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
