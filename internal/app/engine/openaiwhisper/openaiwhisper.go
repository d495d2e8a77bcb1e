// Package openaiwhisper adapts the reference openai-whisper implementation.
package openaiwhisper

import (
	"strconv"

	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

func init() {
	engine.Register(model.EngineOpenAIWhisper, New)
}

// Capabilities of openai-whisper: no VAD, no diarization
var Capabilities = engine.Capabilities{
	Translate:         true,
	Language:          true,
	InitialPrompt:     true,
	WordTimestamps:    true,
	LanguageDetection: true,
	Devices:           []model.Device{model.DeviceCPU, model.DeviceCUDA},
}

type translator struct{}

// LoadParams enables half precision on GPUs
func (translator) LoadParams(key model.ModelKey) map[string]string {
	return map[string]string{"fp16": strconv.FormatBool(key.Device == model.DeviceCUDA)}
}

func (translator) Params(opts model.Options) inference.Params {
	return inference.Params{
		Task:           taskOf(opts),
		Language:       opts.Language,
		InitialPrompt:  opts.InitialPrompt,
		WordTimestamps: opts.WordTimestamps,
	}
}

func taskOf(opts model.Options) model.Task {
	if opts.Task == "" {
		return model.TaskTranscribe
	}
	return opts.Task
}

// New creates the openai_whisper engine
func New(deps engine.Deps) (engine.Engine, error) {
	return engine.NewAdapter(model.EngineOpenAIWhisper, Capabilities, deps, translator{})
}
