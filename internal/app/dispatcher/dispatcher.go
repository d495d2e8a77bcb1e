// Package dispatcher turns one transcription request into formatted output by
// driving the lifecycle manager and the selected engine.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/format"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/model"
)

// Models is the part of the lifecycle manager the dispatcher uses
type Models interface {
	Acquire(ctx context.Context, key model.ModelKey) (*lifecycle.Handle, error)
	Release(h *lifecycle.Handle)
	Touch(h *lifecycle.Handle)
}

// Engines looks up the engine for a kind
type Engines interface {
	Get(kind model.EngineKind) (engine.Engine, error)
}

// Output is a rendered transcription
type Output struct {
	Body        []byte
	ContentType string
	Extension   string
	Engine      model.EngineKind
	Result      *model.Result
}

// Dispatcher handles transcription and language detection requests
type Dispatcher struct {
	models  Models
	engines Engines
	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records request metrics
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a dispatcher
func New(models Models, engines Engines, opts ...Option) *Dispatcher {
	d := &Dispatcher{models: models, engines: engines, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle validates req, runs it on the requested model and renders the result.
// The model handle is released on every path.
func (d *Dispatcher) Handle(ctx context.Context, req *model.TranscriptionRequest) (out *Output, err error) {
	start := time.Now()
	defer func() {
		if req != nil {
			d.metrics.observe(req.Key.Engine, string(req.Options.Output), time.Since(start), err)
		}
	}()

	if err := Validate(req); err != nil {
		return nil, err
	}
	eng, err := d.engines.Get(req.Key.Engine)
	if err != nil {
		return nil, err
	}
	if err := eng.Capabilities().Check(req.Key.Engine, req.Options); err != nil {
		return nil, err
	}

	h, err := d.models.Acquire(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	defer d.models.Release(h)

	result, err := eng.Transcribe(ctx, h.Model(), req.Audio, req.Options)
	if err != nil {
		d.logger.Warn("transcription failed", zap.Stringer("key", req.Key), zap.Error(err))
		return nil, err
	}
	d.models.Touch(h)

	body, err := format.Render(req.Options.Output, result)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("transcribed",
		zap.Stringer("key", req.Key),
		zap.String("output", string(req.Options.Output)),
		zap.Int("segments", len(result.Segments)),
		zap.Duration("elapsed", time.Since(start)))
	return &Output{
		Body:        body,
		ContentType: req.Options.Output.ContentType(),
		Extension:   req.Options.Output.Extension(),
		Engine:      req.Key.Engine,
		Result:      result,
	}, nil
}

// DetectLanguage identifies the language spoken in audio using the model for key
func (d *Dispatcher) DetectLanguage(ctx context.Context, audio []byte, key model.ModelKey) (det model.LanguageDetection, err error) {
	start := time.Now()
	defer func() { d.metrics.observe(key.Engine, "detect_language", time.Since(start), err) }()

	if len(audio) == 0 {
		return det, errors.RequiredField("audio_file")
	}
	if err := validateKey(key); err != nil {
		return det, err
	}
	eng, err := d.engines.Get(key.Engine)
	if err != nil {
		return det, err
	}
	if !eng.Capabilities().LanguageDetection {
		return det, errors.Unsupported(key.Engine, "detect_language")
	}

	h, err := d.models.Acquire(ctx, key)
	if err != nil {
		return det, err
	}
	defer d.models.Release(h)

	det, err = eng.DetectLanguage(ctx, h.Model(), audio)
	if err != nil {
		return det, err
	}
	d.models.Touch(h)
	return det, nil
}
