// Package engine adapts Whisper-family backends to one interface. Each variant
// translates request options into the native parameters of an inference runtime
// and declares which options it can honor.
package engine

import (
	"context"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/model"
)

// Model is a loaded set of weights owned by the lifecycle manager
type Model = lifecycle.Model

// Engine is one speech-recognition backend
type Engine interface {
	Kind() model.EngineKind
	Capabilities() Capabilities
	Load(ctx context.Context, key model.ModelKey) (Model, error)
	Transcribe(ctx context.Context, m Model, audio []byte, opts model.Options) (*model.Result, error)
	DetectLanguage(ctx context.Context, m Model, audio []byte) (model.LanguageDetection, error)
}

// Capabilities is the set of options an engine can honor
type Capabilities struct {
	Translate         bool           `json:"translate"`
	Language          bool           `json:"language"`
	InitialPrompt     bool           `json:"initial_prompt"`
	WordTimestamps    bool           `json:"word_timestamps"`
	VADFilter         bool           `json:"vad_filter"`
	Diarize           bool           `json:"diarize"`
	LanguageDetection bool           `json:"detect_language"`
	Devices           []model.Device `json:"devices"`
}

// SupportsDevice reports whether weights can be placed on d
func (c Capabilities) SupportsDevice(d model.Device) bool {
	for _, dev := range c.Devices {
		if dev == d {
			return true
		}
	}
	return false
}

// Within drops the capabilities rt cannot carry to its backend
func (c Capabilities) Within(rt inference.Runtime) Capabilities {
	c.Translate = c.Translate && rt.Supports(inference.OptionTranslate)
	c.Language = c.Language && rt.Supports(inference.OptionLanguage)
	c.InitialPrompt = c.InitialPrompt && rt.Supports(inference.OptionInitialPrompt)
	c.WordTimestamps = c.WordTimestamps && rt.Supports(inference.OptionWordTimestamps)
	c.VADFilter = c.VADFilter && rt.Supports(inference.OptionVADFilter)
	c.Diarize = c.Diarize && rt.Supports(inference.OptionDiarize)
	c.LanguageDetection = c.LanguageDetection && rt.Supports(inference.OptionDetectLanguage)
	return c
}

// Check returns an UnsupportedOptionError naming the first requested option
// the capabilities do not cover
func (c Capabilities) Check(kind model.EngineKind, opts model.Options) error {
	switch {
	case opts.Task == model.TaskTranslate && !c.Translate:
		return errors.Unsupported(kind, "task=translate")
	case opts.Language != "" && !c.Language:
		return errors.Unsupported(kind, "language")
	case opts.InitialPrompt != "" && !c.InitialPrompt:
		return errors.Unsupported(kind, "initial_prompt")
	case opts.WordTimestamps && !c.WordTimestamps:
		return errors.Unsupported(kind, "word_timestamps")
	case opts.VADFilter && !c.VADFilter:
		return errors.Unsupported(kind, "vad_filter")
	case opts.Diarize && !c.Diarize:
		return errors.Unsupported(kind, "diarize")
	case opts.MinSpeakers > 0 && !c.Diarize:
		return errors.Unsupported(kind, "min_speakers")
	case opts.MaxSpeakers > 0 && !c.Diarize:
		return errors.Unsupported(kind, "max_speakers")
	}
	return nil
}

// Loaded is the Model every adapter hands to the lifecycle manager
type Loaded struct {
	Key      model.ModelKey
	Instance inference.Instance
}

func (l *Loaded) Close() error { return l.Instance.Close() }

func asLoaded(kind model.EngineKind, m Model) (*Loaded, error) {
	l, ok := m.(*Loaded)
	if !ok || l == nil {
		return nil, errors.Newf("%s: model handle of type %T was not loaded by this engine", kind, m)
	}
	if l.Key.Engine != kind {
		return nil, errors.Newf("%s: model %s belongs to another engine", kind, l.Key)
	}
	return l, nil
}
