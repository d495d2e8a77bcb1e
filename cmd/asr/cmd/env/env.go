// Package env loads the configuration and logger shared by every command
package env

import (
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/config"
	"whisper-asr-webservice/internal/logging"
)

// Verbose forces debug logging
var Verbose bool

// Load reads the configuration and builds the logger from it
func Load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if Verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.Options{Level: level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
