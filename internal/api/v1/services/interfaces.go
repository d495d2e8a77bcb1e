package services

import (
	"context"

	"whisper-asr-webservice/internal/api/v1/dto"
	"whisper-asr-webservice/internal/app/dispatcher"
	"whisper-asr-webservice/internal/app/model"
)

// Upload is an audio file received over HTTP
type Upload struct {
	Data     []byte
	Filename string
	// Encode sends the bytes through ffmpeg; otherwise they must already be 16 kHz s16le PCM
	Encode bool
}

// ASRService runs transcriptions and language detection
type ASRService interface {
	Engine() model.EngineKind
	Transcribe(ctx context.Context, upload Upload, opts model.Options, modelName string) (*dispatcher.Output, error)
	DetectLanguage(ctx context.Context, upload Upload) (*dto.DetectLanguageResponse, error)
}

// ModelService reports and controls loaded models
type ModelService interface {
	Status(ctx context.Context) *dto.ModelsResponse
	Unload(ctx context.Context, key model.ModelKey) error
}
