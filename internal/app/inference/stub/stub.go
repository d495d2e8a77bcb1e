// Package stub is an in-process runtime that fabricates deterministic transcripts.
// It backs local development and tests where no Whisper installation exists.
package stub

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

// Runtime loads stub instances
type Runtime struct {
	// LoadDelay simulates the time a real model takes to load
	LoadDelay time.Duration

	loads atomic.Int64
}

// New creates a stub runtime
func New(loadDelay time.Duration) *Runtime {
	return &Runtime{LoadDelay: loadDelay}
}

func (r *Runtime) Name() string { return "stub" }

func (r *Runtime) Supports(string) bool { return true }

// Loads returns how many instances have been created
func (r *Runtime) Loads() int64 { return r.loads.Load() }

func (r *Runtime) Load(ctx context.Context, spec inference.LoadSpec) (inference.Instance, error) {
	if spec.Model == "" {
		return nil, errors.New("stub: model name is empty")
	}
	if r.LoadDelay > 0 {
		timer := time.NewTimer(r.LoadDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.loads.Add(1)
	return &Instance{spec: spec}, nil
}

// Instance produces one segment per second of audio
type Instance struct {
	spec   inference.LoadSpec
	closed atomic.Bool
}

func (i *Instance) Transcribe(ctx context.Context, audio []byte, p inference.Params) (*model.Result, error) {
	if i.closed.Load() {
		return nil, errors.Newf("stub: %s is closed", i.spec.Model)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	language := p.Language
	if language == "" || p.Task == model.TaskTranslate {
		language = "en"
	}
	speakers := p.Int("max_speakers")
	if speakers <= 0 {
		speakers = 2
	}

	seconds := inference.AudioSeconds(audio)
	count := int(math.Ceil(seconds))
	result := &model.Result{
		Language: language,
		Duration: time.Duration(seconds * float64(time.Second)),
		Segments: make([]model.Segment, 0, count),
	}
	for n := 0; n < count; n++ {
		start := float64(n)
		end := math.Min(float64(n+1), seconds)
		text := fmt.Sprintf("%s segment %d", i.spec.Model, n+1)
		if p.Task == model.TaskTranslate {
			text = "translated " + text
		}
		seg := model.Segment{ID: n, Start: start, End: end, Text: text}
		if p.WordTimestamps {
			seg.Words = spreadWords(text, start, end)
		}
		if p.Bool("diarize") {
			seg.Speaker = fmt.Sprintf("SPEAKER_%02d", n%speakers)
		}
		result.Segments = append(result.Segments, seg)
	}
	return result, nil
}

func (i *Instance) DetectLanguage(ctx context.Context, audio []byte) (model.LanguageDetection, error) {
	if i.closed.Load() {
		return model.LanguageDetection{}, errors.Newf("stub: %s is closed", i.spec.Model)
	}
	if err := ctx.Err(); err != nil {
		return model.LanguageDetection{}, err
	}
	if len(audio) == 0 {
		return model.LanguageDetection{}, errors.New("stub: no audio")
	}
	return model.LanguageDetection{Language: "en", Confidence: 0.99}, nil
}

func (i *Instance) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return errors.Newf("stub: %s closed twice", i.spec.Model)
	}
	return nil
}

// Closed reports whether Close has been called
func (i *Instance) Closed() bool { return i.closed.Load() }

func spreadWords(text string, start, end float64) []model.Word {
	fields := strings.Fields(text)
	step := (end - start) / float64(len(fields))
	words := make([]model.Word, len(fields))
	for n, f := range fields {
		words[n] = model.Word{
			Word:       f,
			Start:      start + float64(n)*step,
			End:        start + float64(n+1)*step,
			Confidence: 1,
		}
	}
	return words
}
