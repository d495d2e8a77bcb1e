package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidateTimeout validates a timeout that may be disabled with a non-positive value
func ValidateTimeout(timeout time.Duration, name string) error {
	if timeout > 24*time.Hour {
		return fmt.Errorf("%s too large (max 24 hours)", name)
	}
	return nil
}

// ValidateCapacity validates the loaded-model bound
func ValidateCapacity(capacity int, name string) error {
	if capacity < 0 {
		return fmt.Errorf("%s cannot be negative", name)
	}
	if capacity > 64 {
		return fmt.Errorf("%s too high (max 64)", name)
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed
func ValidateOneOf(value string, allowed []string, name string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), value)
}

// ValidateURL validates URL format
func ValidateURL(url string, name string) error {
	if url == "" {
		return fmt.Errorf("%s URL is required", name)
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%s URL must start with http:// or https://", name)
	}

	return nil
}

// ValidatePort validates port number
func ValidatePort(port string, name string) error {
	if port == "" {
		return fmt.Errorf("%s port is required", name)
	}

	n := 0
	for _, r := range port {
		if r < '0' || r > '9' {
			return fmt.Errorf("%s port invalid", name)
		}
		n = n*10 + int(r-'0')
		if n > 65535 {
			return fmt.Errorf("%s port invalid", name)
		}
	}
	if n == 0 {
		return fmt.Errorf("%s port invalid", name)
	}

	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("ASR_MODEL is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("ASR_MODEL_PATH is required")
	}
	if err := ValidateTimeout(c.IdleTimeout, "MODEL_IDLE_TIMEOUT"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.LoadTimeout, "MODEL_LOAD_TIMEOUT"); err != nil {
		return err
	}
	if err := ValidateCapacity(c.MaxLoadedModels, "MAX_LOADED_MODELS"); err != nil {
		return err
	}
	if err := ValidateOneOf(c.Runtime, Runtimes, "ASR_RUNTIME"); err != nil {
		return err
	}
	if c.Quantization != "" {
		if err := ValidateOneOf(c.Quantization, Quantizations, "ASR_QUANTIZATION"); err != nil {
			return err
		}
	}
	if c.Runtime == "openai" {
		if err := ValidateURL(c.OpenAI.BaseURL, "OPENAI_BASE_URL"); err != nil {
			return err
		}
	}
	if c.Storage.Enabled() && c.Storage.Endpoint == "" {
		return fmt.Errorf("MINIO_ENDPOINT is required when ASR_MODEL_BUCKET is set")
	}
	return ValidatePort(c.Server.Port, "PORT")
}
