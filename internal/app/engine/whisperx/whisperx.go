// Package whisperx adapts WhisperX: batched faster-whisper inference with forced
// alignment and optional pyannote diarization.
package whisperx

import (
	"strconv"

	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

func init() {
	engine.Register(model.EngineWhisperX, New)
}

// DefaultBatchSize is used when none is configured
const DefaultBatchSize = 16

// Capabilities returns what whisperx supports; diarization needs a Hugging Face token
func Capabilities(hfToken string) engine.Capabilities {
	return engine.Capabilities{
		Translate:         true,
		Language:          true,
		WordTimestamps:    true,
		VADFilter:         true,
		Diarize:           hfToken != "",
		LanguageDetection: true,
		Devices:           []model.Device{model.DeviceCPU, model.DeviceCUDA},
	}
}

type translator struct {
	quantization string
	hfToken      string
	batchSize    int
}

func (t translator) LoadParams(key model.ModelKey) map[string]string {
	params := map[string]string{
		"compute_type": engine.ComputeType(t.quantization, key.Device, "int8"),
		"batch_size":   strconv.Itoa(t.batchSize),
	}
	if t.hfToken != "" {
		params["hf_token"] = t.hfToken
	}
	return params
}

// Params always enables VAD, which whisperx applies before batching
func (t translator) Params(opts model.Options) inference.Params {
	task := opts.Task
	if task == "" {
		task = model.TaskTranscribe
	}
	native := map[string]any{
		"vad_filter": true,
		"batch_size": t.batchSize,
		"align":      opts.WordTimestamps || opts.Diarize,
	}
	if opts.Diarize {
		native["diarize"] = true
		if opts.MinSpeakers > 0 {
			native["min_speakers"] = opts.MinSpeakers
		}
		if opts.MaxSpeakers > 0 {
			native["max_speakers"] = opts.MaxSpeakers
		}
	}
	return inference.Params{
		Task:           task,
		Language:       opts.Language,
		WordTimestamps: opts.WordTimestamps,
		Native:         native,
	}
}

// New creates the whisperx engine
func New(deps engine.Deps) (engine.Engine, error) {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	t := translator{quantization: deps.Quantization, hfToken: deps.HFToken, batchSize: batch}
	return engine.NewAdapter(model.EngineWhisperX, Capabilities(deps.HFToken), deps, t)
}
