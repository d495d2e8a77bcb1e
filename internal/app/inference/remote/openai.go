// Package remote runs inference on an OpenAI-compatible transcription API
package remote

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

// detectSeconds is how much audio is sent for language identification
const detectSeconds = 30

// Config selects the remote endpoint
type Config struct {
	APIKey  string
	BaseURL string
	// Model overrides the remote model id; empty uses the requested model name
	Model string
}

// Runtime forwards every request to the remote API. Loading only checks the model exists.
type Runtime struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a runtime for cfg
func New(cfg Config, logger *zap.Logger) *Runtime {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{client: openai.NewClientWithConfig(clientConfig), cfg: cfg, logger: logger}
}

func (r *Runtime) Name() string { return "openai" }

// Supports is false for options the transcription API has no field for
func (r *Runtime) Supports(option string) bool {
	switch option {
	case inference.OptionVADFilter, inference.OptionDiarize:
		return false
	}
	return true
}

func (r *Runtime) Load(ctx context.Context, spec inference.LoadSpec) (inference.Instance, error) {
	id := r.cfg.Model
	if id == "" {
		id = spec.Model
	}
	if _, err := r.client.GetModel(ctx, id); err != nil {
		return nil, errors.Wrapf(err, "remote model %s", id)
	}
	r.logger.Info("remote model available", zap.String("model", id))
	return &Instance{client: r.client, model: id}, nil
}

// Instance is a remote model; it holds no local resources
type Instance struct {
	client *openai.Client
	model  string
}

func (i *Instance) request(audio []byte, p inference.Params) openai.AudioRequest {
	req := openai.AudioRequest{
		Model:    i.model,
		FilePath: "audio.wav",
		Reader:   wavReader(audio),
		Prompt:   p.InitialPrompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if p.Task != model.TaskTranslate {
		req.Language = p.Language
	}
	if p.WordTimestamps {
		req.TimestampGranularities = []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		}
	}
	return req
}

func (i *Instance) Transcribe(ctx context.Context, audio []byte, p inference.Params) (*model.Result, error) {
	var (
		resp openai.AudioResponse
		err  error
	)
	if p.Task == model.TaskTranslate {
		resp, err = i.client.CreateTranslation(ctx, i.request(audio, p))
	} else {
		resp, err = i.client.CreateTranscription(ctx, i.request(audio, p))
	}
	if err != nil {
		return nil, errors.Wrap(err, "remote transcription")
	}
	return convert(resp), nil
}

func (i *Instance) DetectLanguage(ctx context.Context, audio []byte) (model.LanguageDetection, error) {
	if limit := detectSeconds * inference.SampleRate * inference.BytesPerSample; len(audio) > limit {
		audio = audio[:limit]
	}
	resp, err := i.client.CreateTranscription(ctx, i.request(audio, inference.Params{Task: model.TaskTranscribe}))
	if err != nil {
		return model.LanguageDetection{}, errors.Wrap(err, "remote language detection")
	}
	// The API reports no probability for its choice
	return model.LanguageDetection{Language: model.LanguageCode(resp.Language), Confidence: 1}, nil
}

func (i *Instance) Close() error { return nil }

func convert(resp openai.AudioResponse) *model.Result {
	res := &model.Result{
		Language: model.LanguageCode(resp.Language),
		Duration: time.Duration(resp.Duration * float64(time.Second)),
		Segments: make([]model.Segment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		seg := model.Segment{ID: s.ID, Start: s.Start, End: s.End, Text: s.Text}
		for _, w := range resp.Words {
			if w.Start >= s.Start && w.Start < s.End {
				seg.Words = append(seg.Words, model.Word{Word: w.Word, Start: w.Start, End: w.End})
			}
		}
		res.Segments = append(res.Segments, seg)
	}
	if len(res.Segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		res.Segments = append(res.Segments, model.Segment{Text: resp.Text})
	}
	return res
}

// wavReader wraps 16 kHz mono s16le PCM in a WAV container
func wavReader(pcm []byte) io.Reader {
	var hdr bytes.Buffer
	hdr.WriteString("RIFF")
	binary.Write(&hdr, binary.LittleEndian, uint32(36+len(pcm)))
	hdr.WriteString("WAVEfmt ")
	binary.Write(&hdr, binary.LittleEndian, uint32(16))
	binary.Write(&hdr, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&hdr, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&hdr, binary.LittleEndian, uint32(inference.SampleRate))
	binary.Write(&hdr, binary.LittleEndian, uint32(inference.SampleRate*inference.BytesPerSample))
	binary.Write(&hdr, binary.LittleEndian, uint16(inference.BytesPerSample))
	binary.Write(&hdr, binary.LittleEndian, uint16(16))
	hdr.WriteString("data")
	binary.Write(&hdr, binary.LittleEndian, uint32(len(pcm)))
	return io.MultiReader(&hdr, bytes.NewReader(pcm))
}
