package services

import (
	"context"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/api/v1/dto"
	"whisper-asr-webservice/internal/app/audio"
	"whisper-asr-webservice/internal/app/dispatcher"
	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// OpenAIDefaultModel is the model name OpenAI clients send; it selects the configured model
const OpenAIDefaultModel = "whisper-1"

// Catalogue validates model overrides
type Catalogue interface {
	Has(engine model.EngineKind, name string) bool
}

type asrService struct {
	dispatcher *dispatcher.Dispatcher
	normalizer audio.Normalizer
	catalogue  Catalogue
	key        model.ModelKey
	logger     *zap.Logger
}

// NewASRService creates the transcription service for the configured default model
func NewASRService(d *dispatcher.Dispatcher, normalizer audio.Normalizer, catalogue Catalogue, key model.ModelKey, logger *zap.Logger) ASRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &asrService{dispatcher: d, normalizer: normalizer, catalogue: catalogue, key: key, logger: logger}
}

func (s *asrService) Engine() model.EngineKind { return s.key.Engine }

func (s *asrService) Transcribe(ctx context.Context, upload Upload, opts model.Options, modelName string) (*dispatcher.Output, error) {
	key := s.key
	if modelName != "" && modelName != OpenAIDefaultModel {
		if s.catalogue != nil && !s.catalogue.Has(key.Engine, modelName) {
			return nil, errors.InvalidField("model", "unknown model "+modelName+" for engine "+string(key.Engine))
		}
		key.Name = modelName
	}

	pcm, err := s.decode(ctx, upload)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Handle(ctx, &model.TranscriptionRequest{
		Audio:    pcm,
		Key:      key,
		Options:  opts,
		Filename: upload.Filename,
	})
}

func (s *asrService) DetectLanguage(ctx context.Context, upload Upload) (*dto.DetectLanguageResponse, error) {
	pcm, err := s.decode(ctx, upload)
	if err != nil {
		return nil, err
	}
	det, err := s.dispatcher.DetectLanguage(ctx, pcm, s.key)
	if err != nil {
		return nil, err
	}
	name := model.Languages[det.Language]
	if name == "" {
		name = det.Language
	}
	return &dto.DetectLanguageResponse{
		DetectedLanguage: name,
		LanguageCode:     det.Language,
		Confidence:       det.Confidence,
	}, nil
}

func (s *asrService) decode(ctx context.Context, upload Upload) ([]byte, error) {
	if !upload.Encode || s.normalizer == nil {
		return audio.Passthrough{}.Normalize(ctx, upload.Data)
	}
	pcm, err := s.normalizer.Normalize(ctx, upload.Data)
	if err != nil {
		s.logger.Debug("audio normalization failed", zap.String("filename", upload.Filename), zap.Error(err))
		return nil, err
	}
	return pcm, nil
}
