package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Environment  string
}

// Addr returns the listen address
func (sc ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", sc.Host, sc.Port)
}

// IsProduction reports whether the server runs in production mode
func (sc ServerConfig) IsProduction() bool {
	return sc.Environment == "production"
}

// StorageConfig holds the optional S3-compatible weights mirror
type StorageConfig struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Enabled reports whether a mirror bucket is configured
func (sc StorageConfig) Enabled() bool {
	return sc.Bucket != ""
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func userCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}
