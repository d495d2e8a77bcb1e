package dto

import (
	"whisper-asr-webservice/internal/api/errors"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/model"
)

// ASRQuery holds the query parameters of POST /asr
type ASRQuery struct {
	Encode         *bool  `form:"encode"`
	Task           string `form:"task" binding:"omitempty,oneof=transcribe translate"`
	Language       string `form:"language"`
	InitialPrompt  string `form:"initial_prompt"`
	VADFilter      bool   `form:"vad_filter"`
	WordTimestamps bool   `form:"word_timestamps"`
	Diarize        bool   `form:"diarize"`
	MinSpeakers    int    `form:"min_speakers" binding:"omitempty,min=1"`
	MaxSpeakers    int    `form:"max_speakers" binding:"omitempty,min=1"`
	Output         string `form:"output" binding:"omitempty,oneof=txt text vtt srt tsv json"`
}

// Validate checks the language code and speaker range
func (q *ASRQuery) Validate() error {
	return validateCommon(q.Language, q.MinSpeakers, q.MaxSpeakers)
}

// ShouldEncode reports whether the upload goes through ffmpeg; the default is true
func (q *ASRQuery) ShouldEncode() bool { return q.Encode == nil || *q.Encode }

// Options converts the query into transcription options
func (q *ASRQuery) Options() model.Options {
	task := model.Task(q.Task)
	if task == "" {
		task = model.TaskTranscribe
	}
	return model.Options{
		Task:           task,
		Language:       model.LanguageCode(q.Language),
		InitialPrompt:  q.InitialPrompt,
		WordTimestamps: q.WordTimestamps,
		VADFilter:      q.VADFilter,
		Diarize:        q.Diarize,
		MinSpeakers:    q.MinSpeakers,
		MaxSpeakers:    q.MaxSpeakers,
		Output:         outputOr(q.Output, model.FormatTXT),
	}
}

// TranscriptionsForm holds the form fields of the OpenAI-style POST /audio/transcriptions
type TranscriptionsForm struct {
	Encode         *bool  `form:"encode"`
	Language       string `form:"language"`
	Prompt         string `form:"prompt"`
	VADFilter      bool   `form:"vad_filter"`
	WordTimestamps bool   `form:"word_timestamps"`
	Diarize        bool   `form:"diarize"`
	MinSpeakers    int    `form:"min_speakers" binding:"omitempty,min=1"`
	MaxSpeakers    int    `form:"max_speakers" binding:"omitempty,min=1"`
	Model          string `form:"model"`
	ResponseFormat string `form:"response_format" binding:"omitempty,oneof=txt text vtt srt tsv json"`
}

// Validate checks the language code and speaker range
func (f *TranscriptionsForm) Validate() error {
	return validateCommon(f.Language, f.MinSpeakers, f.MaxSpeakers)
}

// ShouldEncode reports whether the upload goes through ffmpeg; the default is true
func (f *TranscriptionsForm) ShouldEncode() bool { return f.Encode == nil || *f.Encode }

// Options converts the form into transcription options; the task is always transcribe
func (f *TranscriptionsForm) Options() model.Options {
	return model.Options{
		Task:           model.TaskTranscribe,
		Language:       model.LanguageCode(f.Language),
		InitialPrompt:  f.Prompt,
		WordTimestamps: f.WordTimestamps,
		VADFilter:      f.VADFilter,
		Diarize:        f.Diarize,
		MinSpeakers:    f.MinSpeakers,
		MaxSpeakers:    f.MaxSpeakers,
		Output:         outputOr(f.ResponseFormat, model.FormatJSON),
	}
}

// DetectLanguageQuery holds the query parameters of POST /detect-language
type DetectLanguageQuery struct {
	Encode *bool `form:"encode"`
}

// ShouldEncode reports whether the upload goes through ffmpeg; the default is true
func (q *DetectLanguageQuery) ShouldEncode() bool { return q.Encode == nil || *q.Encode }

// DetectLanguageResponse is the body of POST /detect-language
type DetectLanguageResponse struct {
	DetectedLanguage string  `json:"detected_language"`
	LanguageCode     string  `json:"language_code"`
	Confidence       float64 `json:"confidence"`
}

// ModelsResponse is the body of GET /models
type ModelsResponse struct {
	DefaultEngine   model.EngineKind        `json:"default_engine"`
	DefaultModel    string                  `json:"default_model"`
	IdleTimeout     string                  `json:"idle_timeout"`
	MaxLoadedModels int                     `json:"max_loaded_models"`
	Models          []lifecycle.ModelStatus `json:"models"`
}

func outputOr(s string, fallback model.OutputFormat) model.OutputFormat {
	if f, ok := model.ParseOutputFormat(s); ok {
		return f
	}
	return fallback
}

func validateCommon(language string, minSpeakers, maxSpeakers int) error {
	fields := make(map[string]string)
	if language != "" && !model.IsLanguage(model.LanguageCode(language)) {
		fields["language"] = "unknown language"
	}
	if minSpeakers > 0 && maxSpeakers > 0 && minSpeakers > maxSpeakers {
		fields["min_speakers"] = "must not exceed max_speakers"
	}
	if len(fields) > 0 {
		return errors.NewValidationError("Validation failed", fields)
	}
	return nil
}
