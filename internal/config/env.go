package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"whisper-asr-webservice/internal/app/model"
)

// Config is the complete service configuration
type Config struct {
	Engine       model.EngineKind
	Model        string
	ModelPath    string
	Device       model.Device
	Quantization string
	// Catalogue is an optional YAML file adding downloadable models
	Catalogue string
	BatchSize int

	// IdleTimeout <= 0 disables idle eviction
	IdleTimeout     time.Duration
	MaxLoadedModels int
	LoadTimeout     time.Duration

	Runtime      string
	WorkerPython string
	HFToken      string
	OpenAI       OpenAIConfig
	Storage      StorageConfig
	Server       ServerConfig
	Log          LogConfig
}

// OpenAIConfig configures the OpenAI-compatible remote runtime
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Model replaces ASR_MODEL as the remote model id, e.g. whisper-1
	Model string
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string
	Format string
}

// DefaultKey returns the model key selected by ASR_ENGINE, ASR_MODEL and ASR_DEVICE
func (c *Config) DefaultKey() model.ModelKey {
	return model.ModelKey{Engine: c.Engine, Name: c.Model, Device: c.Device}
}

// LoadEnv loads environment variables from .env file if it exists.
// It returns the path that was loaded, or "" when none was found.
func LoadEnv() (string, error) {
	envPaths := []string{
		".env",
		".env.local",
		"../.env",
	}

	// Look for .env file, but don't fail if not found (environment variables might be set system-wide)
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			return envPath, nil
		}
	}

	return "", nil
}

// Load builds the configuration from defaults, the optional ASR_CONFIG_FILE and the environment,
// in increasing order of precedence
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("ASR_CONFIG_FILE")); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := file.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// InitializeConfig loads .env and the configuration.
// This is the main entry point for configuration loading
func InitializeConfig() (*Config, error) {
	if _, err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return Load()
}

func defaults() *Config {
	return &Config{
		Engine:          model.EngineKind(DefaultEngine),
		Model:           DefaultModel,
		ModelPath:       DefaultModelPath(),
		Device:          model.Device(DefaultDevice),
		IdleTimeout:     DefaultIdleTimeout,
		MaxLoadedModels: DefaultMaxLoadedModels,
		LoadTimeout:     DefaultLoadTimeout,
		Runtime:         DefaultRuntime,
		WorkerPython:    DefaultWorkerPython,
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIBaseURL,
		},
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleConnTimeout,
			Environment:  "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup("ASR_ENGINE"); ok {
		kind, err := model.ParseEngineKind(v)
		if err != nil {
			return fmt.Errorf("ASR_ENGINE: %w", err)
		}
		cfg.Engine = kind
	}
	if v, ok := lookup("ASR_MODEL"); ok {
		cfg.Model = v
	}
	if v, ok := lookup("ASR_MODEL_PATH"); ok {
		cfg.ModelPath = filepath.Clean(v)
	}
	if v, ok := lookup("ASR_DEVICE"); ok {
		device, err := model.ParseDevice(v)
		if err != nil {
			return fmt.Errorf("ASR_DEVICE: %w", err)
		}
		cfg.Device = device
	}
	if v, ok := lookup("ASR_QUANTIZATION"); ok {
		cfg.Quantization = strings.ToLower(v)
	}
	if v, ok := lookup("ASR_MODEL_CATALOGUE"); ok {
		cfg.Catalogue = v
	}
	if v, ok := lookup("ASR_BATCH_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ASR_BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = n
	}
	if v, ok := lookup("MODEL_IDLE_TIMEOUT"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MODEL_IDLE_TIMEOUT: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if v, ok := lookup("MODEL_LOAD_TIMEOUT"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MODEL_LOAD_TIMEOUT: %w", err)
		}
		cfg.LoadTimeout = d
	}
	if v, ok := lookup("MAX_LOADED_MODELS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_LOADED_MODELS: %w", err)
		}
		cfg.MaxLoadedModels = n
	}
	if v, ok := lookup("ASR_RUNTIME"); ok {
		cfg.Runtime = strings.ToLower(v)
	}
	if v, ok := lookup("ASR_WORKER_PYTHON"); ok {
		cfg.WorkerPython = v
	}
	if v, ok := lookup("HF_TOKEN"); ok {
		cfg.HFToken = v
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		cfg.OpenAI.APIKey = v
	}
	if v, ok := lookup("OPENAI_MODEL"); ok {
		cfg.OpenAI.Model = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok {
		cfg.OpenAI.BaseURL = strings.TrimRight(v, "/")
	}

	if v, ok := lookup("ASR_MODEL_BUCKET"); ok {
		cfg.Storage.Bucket = v
	}
	cfg.Storage.Endpoint = getEnvOrDefault("MINIO_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnvOrDefault("MINIO_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnvOrDefault("MINIO_SECRET_KEY", cfg.Storage.SecretKey)
	if v, ok := lookup("MINIO_USE_SSL"); ok {
		cfg.Storage.UseSSL = v == "true" || v == "1"
	}

	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Environment = getEnvOrDefault("ENVIRONMENT", cfg.Server.Environment)
	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)

	return nil
}

// lookup returns a trimmed, non-empty environment value
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// ParseDuration accepts a bare number of seconds ("300", "1.5") or a Go duration ("5m").
// Empty input yields zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
