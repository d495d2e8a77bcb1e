//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/modelstore"
	"whisper-asr-webservice/internal/config"
)

// InitializeService builds the HTTP service and the model lifecycle behind it
func InitializeService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	wire.Build(ServiceSet)
	return &Service{}, nil
}

// InitializeStore builds the weights cache alone, reporting transfers to progress
func InitializeStore(cfg *config.Config, logger *zap.Logger, progress modelstore.Progress) (*modelstore.Store, error) {
	wire.Build(StoreSet)
	return &modelstore.Store{}, nil
}
