package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"whisper-asr-webservice/internal/app/model"
)

// File is the YAML representation of the configuration. Every field is optional;
// values given here are overridden by the environment.
type File struct {
	Engine       string `yaml:"engine"`
	Model        string `yaml:"model"`
	ModelPath    string `yaml:"model_path"`
	Device       string `yaml:"device"`
	Quantization string `yaml:"quantization"`
	Catalogue    string `yaml:"catalogue"`
	BatchSize    int    `yaml:"batch_size"`

	Lifecycle struct {
		IdleTimeout     string `yaml:"idle_timeout"`
		LoadTimeout     string `yaml:"load_timeout"`
		MaxLoadedModels *int   `yaml:"max_loaded_models"`
	} `yaml:"lifecycle"`

	Runtime struct {
		Name    string `yaml:"name"`
		Python  string `yaml:"python"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"runtime"`

	Storage struct {
		Bucket    string `yaml:"bucket"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"storage"`

	Server struct {
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		Environment string `yaml:"environment"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFile reads and parses a YAML configuration file.
// ${VAR} references are expanded from the environment.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &f, nil
}

func (f *File) apply(cfg *Config) error {
	if f.Engine != "" {
		kind, err := model.ParseEngineKind(f.Engine)
		if err != nil {
			return err
		}
		cfg.Engine = kind
	}
	if f.Device != "" {
		device, err := model.ParseDevice(f.Device)
		if err != nil {
			return err
		}
		cfg.Device = device
	}
	setString(&cfg.Model, f.Model)
	setString(&cfg.ModelPath, f.ModelPath)
	setString(&cfg.Quantization, f.Quantization)
	setString(&cfg.Catalogue, f.Catalogue)
	if f.BatchSize > 0 {
		cfg.BatchSize = f.BatchSize
	}

	if f.Lifecycle.IdleTimeout != "" {
		d, err := ParseDuration(f.Lifecycle.IdleTimeout)
		if err != nil {
			return fmt.Errorf("lifecycle.idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if f.Lifecycle.LoadTimeout != "" {
		d, err := ParseDuration(f.Lifecycle.LoadTimeout)
		if err != nil {
			return fmt.Errorf("lifecycle.load_timeout: %w", err)
		}
		cfg.LoadTimeout = d
	}
	if f.Lifecycle.MaxLoadedModels != nil {
		cfg.MaxLoadedModels = *f.Lifecycle.MaxLoadedModels
	}

	setString(&cfg.Runtime, f.Runtime.Name)
	setString(&cfg.WorkerPython, f.Runtime.Python)
	setString(&cfg.OpenAI.BaseURL, f.Runtime.BaseURL)
	setString(&cfg.OpenAI.APIKey, f.Runtime.APIKey)
	setString(&cfg.OpenAI.Model, f.Runtime.Model)

	setString(&cfg.Storage.Bucket, f.Storage.Bucket)
	setString(&cfg.Storage.Endpoint, f.Storage.Endpoint)
	setString(&cfg.Storage.AccessKey, f.Storage.AccessKey)
	setString(&cfg.Storage.SecretKey, f.Storage.SecretKey)
	if f.Storage.UseSSL {
		cfg.Storage.UseSSL = true
	}

	setString(&cfg.Server.Host, f.Server.Host)
	setString(&cfg.Server.Port, f.Server.Port)
	setString(&cfg.Server.Environment, f.Server.Environment)
	setString(&cfg.Log.Level, f.Log.Level)
	setString(&cfg.Log.Format, f.Log.Format)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
