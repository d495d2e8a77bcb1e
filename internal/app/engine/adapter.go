package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

// Weights resolves a model name to the directory holding its weights
type Weights interface {
	Resolve(ctx context.Context, engine model.EngineKind, name string) (string, error)
}

// Deps are the collaborators shared by every engine
type Deps struct {
	Runtime inference.Runtime
	Weights Weights
	// Quantization is the compute type requested through ASR_QUANTIZATION
	Quantization string
	// HFToken enables whisperx diarization
	HFToken   string
	BatchSize int
	Logger    *zap.Logger
}

// Translator maps keys and options onto a runtime's native parameters
type Translator interface {
	LoadParams(key model.ModelKey) map[string]string
	Params(opts model.Options) inference.Params
}

// Adapter implements Engine over an inference runtime. Variants supply the
// capabilities and the parameter translation; the runtime can only narrow them.
type Adapter struct {
	kind       model.EngineKind
	caps       Capabilities
	deps       Deps
	translator Translator
	logger     *zap.Logger
}

// NewAdapter builds an engine of the given kind
func NewAdapter(kind model.EngineKind, caps Capabilities, deps Deps, t Translator) (*Adapter, error) {
	if deps.Runtime == nil {
		return nil, errors.Newf("%s: no inference runtime configured", kind)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		kind:       kind,
		caps:       caps.Within(deps.Runtime),
		deps:       deps,
		translator: t,
		logger:     logger.With(zap.String("engine", string(kind))),
	}, nil
}

func (a *Adapter) Kind() model.EngineKind     { return a.kind }
func (a *Adapter) Capabilities() Capabilities { return a.caps }

// Load resolves the weights and asks the runtime for an instance
func (a *Adapter) Load(ctx context.Context, key model.ModelKey) (Model, error) {
	if key.Engine != a.kind {
		return nil, errors.Newf("%s cannot load %s", a.kind, key)
	}
	if key.Name == "" {
		return nil, errors.RequiredField("model")
	}
	if !a.caps.SupportsDevice(key.Device) {
		return nil, errors.Newf("device %s is not supported by %s", key.Device, a.kind)
	}

	var dir string
	if a.deps.Weights != nil {
		var err error
		if dir, err = a.deps.Weights.Resolve(ctx, key.Engine, key.Name); err != nil {
			return nil, err
		}
	}

	spec := inference.LoadSpec{
		Engine:     key.Engine,
		Model:      key.Name,
		Device:     key.Device,
		WeightsDir: dir,
		Native:     a.translator.LoadParams(key),
	}
	a.logger.Info("loading model",
		zap.String("model", key.Name), zap.String("device", string(key.Device)), zap.String("runtime", a.deps.Runtime.Name()))
	inst, err := a.deps.Runtime.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &Loaded{Key: key, Instance: inst}, nil
}

// Transcribe runs one request against a loaded model
func (a *Adapter) Transcribe(ctx context.Context, m Model, audio []byte, opts model.Options) (*model.Result, error) {
	if err := a.caps.Check(a.kind, opts); err != nil {
		return nil, err
	}
	loaded, err := asLoaded(a.kind, m)
	if err != nil {
		return nil, err
	}
	result, err := loaded.Instance.Transcribe(ctx, audio, a.translator.Params(opts))
	if err != nil {
		return nil, errors.Wrapf(err, "%s transcribe", a.kind)
	}
	if result.Language == "" {
		result.Language = model.LanguageCode(opts.Language)
	}
	for i := range result.Segments {
		result.Segments[i].ID = i
		if !opts.WordTimestamps {
			result.Segments[i].Words = nil
		}
	}
	return result, nil
}

// DetectLanguage identifies the spoken language of the audio
func (a *Adapter) DetectLanguage(ctx context.Context, m Model, audio []byte) (model.LanguageDetection, error) {
	if !a.caps.LanguageDetection {
		return model.LanguageDetection{}, errors.Unsupported(a.kind, "detect_language")
	}
	loaded, err := asLoaded(a.kind, m)
	if err != nil {
		return model.LanguageDetection{}, err
	}
	det, err := loaded.Instance.DetectLanguage(ctx, audio)
	if err != nil {
		return model.LanguageDetection{}, errors.Wrapf(err, "%s detect language", a.kind)
	}
	det.Language = model.LanguageCode(strings.TrimSpace(det.Language))
	return det, nil
}

// ComputeType picks the quantization for a device, preferring the configured one
func ComputeType(quantization string, device model.Device, cpuDefault string) string {
	if quantization != "" {
		return quantization
	}
	if device == model.DeviceCUDA {
		return "float16"
	}
	return cpuDefault
}
