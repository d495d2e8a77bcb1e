package services

import (
	"context"

	"whisper-asr-webservice/internal/api/v1/dto"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/model"
)

type modelService struct {
	manager *lifecycle.Manager
	key     model.ModelKey
}

// NewModelService exposes the lifecycle manager's status and manual unload
func NewModelService(manager *lifecycle.Manager, defaultKey model.ModelKey) ModelService {
	return &modelService{manager: manager, key: defaultKey}
}

func (s *modelService) Status(_ context.Context) *dto.ModelsResponse {
	cfg := s.manager.Config()
	idle := "disabled"
	if cfg.IdleTimeout > 0 {
		idle = cfg.IdleTimeout.String()
	}
	return &dto.ModelsResponse{
		DefaultEngine:   s.key.Engine,
		DefaultModel:    s.key.Name,
		IdleTimeout:     idle,
		MaxLoadedModels: cfg.MaxLoadedModels,
		Models:          s.manager.Status(),
	}
}

func (s *modelService) Unload(_ context.Context, key model.ModelKey) error {
	return s.manager.Unload(key)
}
