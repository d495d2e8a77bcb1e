package config

import "time"

// Default configuration constants
const (
	// Engine defaults
	DefaultEngine  = "openai_whisper"
	DefaultModel   = "base"
	DefaultDevice  = "cpu"
	DefaultRuntime = "worker"

	// Lifecycle defaults; a zero idle timeout disables eviction
	DefaultIdleTimeout     = 0
	DefaultMaxLoadedModels = 0
	DefaultLoadTimeout     = 10 * time.Minute

	// Network defaults
	DefaultHost = "0.0.0.0"
	DefaultPort = "9000"

	DefaultReadTimeout     = 5 * time.Minute
	DefaultWriteTimeout    = 30 * time.Minute
	DefaultIdleConnTimeout = 2 * time.Minute

	// Remote runtime
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// Worker runtime
	DefaultWorkerPython = "python3"
)

// Runtimes accepted by ASR_RUNTIME
var Runtimes = []string{"worker", "openai", "stub"}

// Quantizations accepted by ASR_QUANTIZATION
var Quantizations = []string{"float32", "float16", "int8", "int8_float16"}

// DefaultModelPath returns the weights cache directory used when ASR_MODEL_PATH is unset
func DefaultModelPath() string {
	if dir, err := userCacheDir(); err == nil {
		return dir + "/whisper"
	}
	return "./models"
}
