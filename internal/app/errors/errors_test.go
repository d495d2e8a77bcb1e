package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/model"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, "write weights")

	assert.Equal(t, "write weights: disk full", err.Error())
	assert.True(t, goerrors.Is(err, cause))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestTypedErrorsMatchKinds(t *testing.T) {
	key := model.ModelKey{Engine: model.EngineFasterWhisper, Name: "base", Device: model.DeviceCPU}

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"load", &LoadError{Key: key, Err: fmt.Errorf("oom")}, ErrLoad},
		{"capacity", &CapacityError{Key: key, Limit: 2}, ErrCapacity},
		{"unsupported", Unsupported(model.EngineOpenAIWhisper, "diarize"), ErrUnsupportedOption},
		{"validation", RequiredField("audio"), ErrValidation},
		{"format", &FormatError{Format: model.FormatSRT, Reason: "no timestamps"}, ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("dispatch: %w", tt.err)
			assert.True(t, goerrors.Is(wrapped, tt.kind))
			for _, other := range []error{ErrLoad, ErrCapacity, ErrUnsupportedOption, ErrValidation, ErrFormat} {
				if other != tt.kind {
					assert.False(t, goerrors.Is(wrapped, other), "unexpected match for %v", other)
				}
			}
		})
	}
}

func TestAsHelpers(t *testing.T) {
	res := &model.Result{Segments: []model.Segment{{Text: "hi"}}}
	err := fmt.Errorf("outer: %w", &FormatError{Format: model.FormatVTT, Reason: "x", Result: res})

	fe, ok := AsFormat(err)
	require.True(t, ok)
	assert.Same(t, res, fe.Result)

	_, ok = AsLoad(err)
	assert.False(t, ok)

	ue, ok := AsUnsupported(Unsupported(model.EngineWhisperX, "vad_filter"))
	require.True(t, ok)
	assert.Equal(t, "vad_filter", ue.Option)
	assert.Contains(t, ue.Error(), "whisperx")
}
