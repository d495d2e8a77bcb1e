package inference

import (
	"context"
	"strconv"

	"whisper-asr-webservice/internal/app/model"
)

// LoadSpec describes one model to bring into memory
type LoadSpec struct {
	Engine     model.EngineKind
	Model      string
	Device     model.Device
	WeightsDir string
	// Native holds engine-specific load parameters such as compute_type
	Native map[string]string
}

// Params is a transcription request already translated by an engine
type Params struct {
	Task           model.Task `json:"task"`
	Language       string     `json:"language,omitempty"`
	InitialPrompt  string     `json:"initial_prompt,omitempty"`
	WordTimestamps bool       `json:"word_timestamps"`
	// Native holds engine-specific keyword arguments such as vad_filter or diarize
	Native map[string]any `json:"native,omitempty"`
}

// Bool reads a boolean native parameter
func (p Params) Bool(name string) bool {
	v, _ := p.Native[name].(bool)
	return v
}

// Int reads an integer native parameter
func (p Params) Int(name string) int {
	switch v := p.Native[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Request options a runtime may or may not be able to carry to its backend
const (
	OptionTranslate      = "translate"
	OptionLanguage       = "language"
	OptionInitialPrompt  = "initial_prompt"
	OptionWordTimestamps = "word_timestamps"
	OptionVADFilter      = "vad_filter"
	OptionDiarize        = "diarize"
	OptionDetectLanguage = "detect_language"
)

// Runtime hosts model weights and runs inference on them
type Runtime interface {
	Name() string
	// Supports reports whether option reaches the backend; engines drop any
	// capability their runtime cannot carry
	Supports(option string) bool
	Load(ctx context.Context, spec LoadSpec) (Instance, error)
}

// Instance is one loaded model inside a runtime
type Instance interface {
	Transcribe(ctx context.Context, audio []byte, params Params) (*model.Result, error)
	DetectLanguage(ctx context.Context, audio []byte) (model.LanguageDetection, error)
	// Close frees the instance's memory; it is called exactly once
	Close() error
}

// PCM format every runtime receives
const (
	SampleRate     = 16000
	BytesPerSample = 2
)

// AudioSeconds returns the duration of 16 kHz mono s16le audio
func AudioSeconds(pcm []byte) float64 {
	return float64(len(pcm)/BytesPerSample) / SampleRate
}
