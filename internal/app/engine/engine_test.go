package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/engine/fasterwhisper"
	"whisper-asr-webservice/internal/app/engine/openaiwhisper"
	"whisper-asr-webservice/internal/app/engine/whisperx"
	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/inference/remote"
	"whisper-asr-webservice/internal/app/inference/stub"
	"whisper-asr-webservice/internal/app/model"
)

// recordingRuntime wraps the stub runtime and remembers what it was asked
type recordingRuntime struct {
	*stub.Runtime
	mu     sync.Mutex
	specs  []inference.LoadSpec
	params []inference.Params
}

func (r *recordingRuntime) Load(ctx context.Context, spec inference.LoadSpec) (inference.Instance, error) {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	r.mu.Unlock()
	inst, err := r.Runtime.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &recordingInstance{Instance: inst, rt: r}, nil
}

type recordingInstance struct {
	inference.Instance
	rt *recordingRuntime
}

func (i *recordingInstance) Transcribe(ctx context.Context, audio []byte, p inference.Params) (*model.Result, error) {
	i.rt.mu.Lock()
	i.rt.params = append(i.rt.params, p)
	i.rt.mu.Unlock()
	return i.Instance.Transcribe(ctx, audio, p)
}

type fakeWeights struct{ resolved []string }

func (w *fakeWeights) Resolve(_ context.Context, engine model.EngineKind, name string) (string, error) {
	if name == "missing" {
		return "", errors.Newf("unknown model %q", name)
	}
	w.resolved = append(w.resolved, string(engine)+"/"+name)
	return "/cache/" + string(engine) + "/" + name, nil
}

func newDeps() (engine.Deps, *recordingRuntime, *fakeWeights) {
	rt := &recordingRuntime{Runtime: stub.New(0)}
	w := &fakeWeights{}
	return engine.Deps{Runtime: rt, Weights: w}, rt, w
}

func key(kind model.EngineKind) model.ModelKey {
	return model.ModelKey{Engine: kind, Name: "base", Device: model.DeviceCPU}
}

var twoSeconds = make([]byte, 2*inference.SampleRate*inference.BytesPerSample)

func TestVariantsRegisterThemselves(t *testing.T) {
	assert.Equal(t, []model.EngineKind{model.EngineFasterWhisper, model.EngineOpenAIWhisper, model.EngineWhisperX}, engine.Kinds())

	_, err := engine.Lookup("kaldi")
	assert.ErrorIs(t, err, errors.ErrUnknownEngine)
}

func TestCheckNamesFirstUnsupportedOption(t *testing.T) {
	tests := []struct {
		name   string
		caps   engine.Capabilities
		opts   model.Options
		option string
	}{
		{"vad on openai_whisper", openaiwhisper.Capabilities, model.Options{VADFilter: true}, "vad_filter"},
		{"diarize on faster_whisper", fasterwhisper.Capabilities, model.Options{Diarize: true}, "diarize"},
		{"speakers without diarize", fasterwhisper.Capabilities, model.Options{MaxSpeakers: 3}, "max_speakers"},
		{"prompt on whisperx", whisperx.Capabilities("token"), model.Options{InitialPrompt: "hi"}, "initial_prompt"},
		{"diarize without token", whisperx.Capabilities(""), model.Options{Diarize: true}, "diarize"},
		{"translate on nothing", engine.Capabilities{}, model.Options{Task: model.TaskTranslate, Language: "fr"}, "task=translate"},
		{"supported", fasterwhisper.Capabilities, model.Options{VADFilter: true, WordTimestamps: true, Language: "fr"}, ""},
		{"diarize with token", whisperx.Capabilities("token"), model.Options{Diarize: true, MinSpeakers: 1, MaxSpeakers: 2}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.caps.Check("x", tt.opts)
			if tt.option == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrUnsupportedOption)
			unsupported, ok := errors.AsUnsupported(err)
			require.True(t, ok)
			assert.Equal(t, tt.option, unsupported.Option)
		})
	}
}

func TestSetLoadsThroughTheKeysEngine(t *testing.T) {
	deps, rt, weights := newDeps()
	set, err := engine.Build(deps)
	require.NoError(t, err)
	assert.Len(t, set.Kinds(), 3)

	m, err := set.Load(context.Background(), key(model.EngineFasterWhisper))
	require.NoError(t, err)
	loaded := m.(*engine.Loaded)
	assert.Equal(t, key(model.EngineFasterWhisper), loaded.Key)
	assert.Equal(t, []string{"faster_whisper/base"}, weights.resolved)
	require.Len(t, rt.specs, 1)
	assert.Equal(t, "/cache/faster_whisper/base", rt.specs[0].WeightsDir)
	assert.Equal(t, "float32", rt.specs[0].Native["compute_type"])
	require.NoError(t, m.Close())

	_, err = engine.NewSet().Load(context.Background(), key(model.EngineWhisperX))
	assert.ErrorIs(t, err, errors.ErrUnknownEngine)
}

func TestLoadFailures(t *testing.T) {
	deps, _, _ := newDeps()
	e, err := openaiwhisper.New(deps)
	require.NoError(t, err)

	_, err = e.Load(context.Background(), model.ModelKey{Engine: model.EngineOpenAIWhisper, Name: "missing", Device: model.DeviceCPU})
	assert.ErrorContains(t, err, "missing")

	_, err = e.Load(context.Background(), model.ModelKey{Engine: model.EngineOpenAIWhisper, Name: "base", Device: "tpu"})
	assert.ErrorContains(t, err, "tpu")

	_, err = e.Load(context.Background(), key(model.EngineWhisperX))
	assert.Error(t, err)

	_, err = openaiwhisper.New(engine.Deps{})
	assert.Error(t, err)
}

func TestQuantizationReachesLoadParams(t *testing.T) {
	deps, rt, _ := newDeps()
	deps.Quantization = "int8"
	e, err := fasterwhisper.New(deps)
	require.NoError(t, err)
	_, err = e.Load(context.Background(), key(model.EngineFasterWhisper))
	require.NoError(t, err)
	assert.Equal(t, "int8", rt.specs[0].Native["compute_type"])

	deps.Quantization = ""
	e, err = whisperx.New(deps)
	require.NoError(t, err)
	_, err = e.Load(context.Background(), model.ModelKey{Engine: model.EngineWhisperX, Name: "base", Device: model.DeviceCUDA})
	require.NoError(t, err)
	assert.Equal(t, "float16", rt.specs[1].Native["compute_type"])
	assert.Equal(t, "16", rt.specs[1].Native["batch_size"])
}

func TestTranscribeTranslatesOptions(t *testing.T) {
	deps, rt, _ := newDeps()
	deps.HFToken = "hf_secret"
	e, err := whisperx.New(deps)
	require.NoError(t, err)
	m, err := e.Load(context.Background(), key(model.EngineWhisperX))
	require.NoError(t, err)

	res, err := e.Transcribe(context.Background(), m, twoSeconds, model.Options{
		Language:    "de",
		Diarize:     true,
		MaxSpeakers: 3,
	})
	require.NoError(t, err)
	require.Len(t, rt.params, 1)
	p := rt.params[0]
	assert.Equal(t, model.TaskTranscribe, p.Task)
	assert.True(t, p.Bool("vad_filter"))
	assert.True(t, p.Bool("diarize"))
	assert.Equal(t, 3, p.Int("max_speakers"))
	assert.Equal(t, "hf_secret", rt.specs[0].Native["hf_token"])

	require.Len(t, res.Segments, 2)
	assert.Equal(t, "de", res.Language)
	assert.NotEmpty(t, res.Segments[0].Speaker)
	assert.Nil(t, res.Segments[0].Words)
}

func TestTranscribeRejectsUnsupportedOptions(t *testing.T) {
	deps, rt, _ := newDeps()
	e, err := openaiwhisper.New(deps)
	require.NoError(t, err)
	m, err := e.Load(context.Background(), key(model.EngineOpenAIWhisper))
	require.NoError(t, err)

	_, err = e.Transcribe(context.Background(), m, twoSeconds, model.Options{VADFilter: true})
	assert.ErrorIs(t, err, errors.ErrUnsupportedOption)
	assert.Empty(t, rt.params)
}

func TestTranscribeRejectsForeignModels(t *testing.T) {
	deps, _, _ := newDeps()
	fw, err := fasterwhisper.New(deps)
	require.NoError(t, err)
	ow, err := openaiwhisper.New(deps)
	require.NoError(t, err)

	m, err := fw.Load(context.Background(), key(model.EngineFasterWhisper))
	require.NoError(t, err)
	_, err = ow.Transcribe(context.Background(), m, twoSeconds, model.Options{})
	assert.ErrorContains(t, err, "another engine")
}

func TestDetectLanguage(t *testing.T) {
	deps, _, _ := newDeps()
	e, err := fasterwhisper.New(deps)
	require.NoError(t, err)
	m, err := e.Load(context.Background(), key(model.EngineFasterWhisper))
	require.NoError(t, err)

	det, err := e.DetectLanguage(context.Background(), m, twoSeconds)
	require.NoError(t, err)
	assert.Equal(t, "en", det.Language)
	assert.InDelta(t, 0.99, det.Confidence, 1e-9)
}

func TestRemoteRuntimeNarrowsCapabilities(t *testing.T) {
	rt := remote.New(remote.Config{BaseURL: "http://127.0.0.1:1/v1"}, nil)

	wx, err := whisperx.New(engine.Deps{Runtime: rt, HFToken: "hf_secret"})
	require.NoError(t, err)
	caps := wx.Capabilities()
	assert.False(t, caps.Diarize)
	assert.False(t, caps.VADFilter)
	assert.True(t, caps.WordTimestamps)
	assert.True(t, caps.LanguageDetection)

	// Rejected before the instance is used, so no model needs to be loaded
	loaded := &engine.Loaded{Key: key(model.EngineWhisperX)}
	tests := []struct {
		opts   model.Options
		option string
	}{
		{model.Options{Diarize: true, VADFilter: true}, "vad_filter"},
		{model.Options{Diarize: true}, "diarize"},
		{model.Options{MinSpeakers: 1, MaxSpeakers: 2}, "min_speakers"},
	}
	for _, tt := range tests {
		_, err := wx.Transcribe(context.Background(), loaded, twoSeconds, tt.opts)
		require.ErrorIs(t, err, errors.ErrUnsupportedOption)
		unsupported, ok := errors.AsUnsupported(err)
		require.True(t, ok)
		assert.Equal(t, tt.option, unsupported.Option)
	}

	fw, err := fasterwhisper.New(engine.Deps{Runtime: rt})
	require.NoError(t, err)
	err = fw.Capabilities().Check(model.EngineFasterWhisper, model.Options{VADFilter: true})
	assert.ErrorIs(t, err, errors.ErrUnsupportedOption)
	assert.NoError(t, fw.Capabilities().Check(model.EngineFasterWhisper, model.Options{Language: "fr", WordTimestamps: true}))
}

func TestLocalRuntimesKeepCapabilities(t *testing.T) {
	deps, _, _ := newDeps()
	deps.HFToken = "hf_secret"
	wx, err := whisperx.New(deps)
	require.NoError(t, err)
	assert.Equal(t, whisperx.Capabilities("hf_secret"), wx.Capabilities())
}
