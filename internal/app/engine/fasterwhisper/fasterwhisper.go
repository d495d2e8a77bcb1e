// Package fasterwhisper adapts the CTranslate2 faster-whisper implementation.
package fasterwhisper

import (
	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

func init() {
	engine.Register(model.EngineFasterWhisper, New)
}

// Capabilities of faster-whisper: adds Silero VAD filtering
var Capabilities = engine.Capabilities{
	Translate:         true,
	Language:          true,
	InitialPrompt:     true,
	WordTimestamps:    true,
	VADFilter:         true,
	LanguageDetection: true,
	Devices:           []model.Device{model.DeviceCPU, model.DeviceCUDA},
}

const beamSize = 5

type translator struct {
	quantization string
}

func (t translator) LoadParams(key model.ModelKey) map[string]string {
	return map[string]string{"compute_type": engine.ComputeType(t.quantization, key.Device, "float32")}
}

func (translator) Params(opts model.Options) inference.Params {
	task := opts.Task
	if task == "" {
		task = model.TaskTranscribe
	}
	return inference.Params{
		Task:           task,
		Language:       opts.Language,
		InitialPrompt:  opts.InitialPrompt,
		WordTimestamps: opts.WordTimestamps,
		Native: map[string]any{
			"vad_filter": opts.VADFilter,
			"beam_size":  beamSize,
		},
	}
}

// New creates the faster_whisper engine
func New(deps engine.Deps) (engine.Engine, error) {
	return engine.NewAdapter(model.EngineFasterWhisper, Capabilities, deps, translator{quantization: deps.Quantization})
}
