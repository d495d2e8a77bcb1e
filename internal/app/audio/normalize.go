// Package audio turns uploads into the 16 kHz mono s16le PCM every engine consumes.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
)

// Normalizer converts raw upload bytes to canonical PCM
type Normalizer interface {
	Normalize(ctx context.Context, data []byte) ([]byte, error)
}

// Passthrough hands the bytes on untouched; used for encode=false uploads that
// are already raw PCM
type Passthrough struct{}

func (Passthrough) Normalize(_ context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.RequiredField("audio_file")
	}
	return data, nil
}

// FFmpegNormalizer decodes any container or codec ffmpeg understands
type FFmpegNormalizer struct {
	Binary string
	logger *zap.Logger
}

// NewFFmpegNormalizer creates a normalizer running the ffmpeg binary on PATH
func NewFFmpegNormalizer(logger *zap.Logger) *FFmpegNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegNormalizer{Binary: "ffmpeg", logger: logger}
}

// Args returns the ffmpeg command line reading stdin and writing PCM to stdout
func Args() []string {
	return []string{
		"-nostdin", "-threads", "0",
		"-i", "-",
		"-f", "s16le", "-ac", "1", "-acodec", "pcm_s16le", "-ar", "16000",
		"-",
	}
}

func (n *FFmpegNormalizer) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.RequiredField("audio_file")
	}
	if pcm, ok := CanonicalWAV(data); ok {
		n.logger.Debug("upload is already 16kHz mono s16le, skipping conversion")
		return pcm, nil
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, n.Binary, Args()...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.InvalidField("audio_file", "ffmpeg could not decode the upload: "+lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.InvalidField("audio_file", "no audio stream found")
	}
	n.logger.Debug("audio normalized",
		zap.Int("input_bytes", len(data)),
		zap.Float64("seconds", DurationOf(stdout.Bytes()).Seconds()),
		zap.Duration("elapsed", time.Since(start)))
	return stdout.Bytes(), nil
}

// DurationOf returns the length of 16 kHz mono s16le audio
func DurationOf(pcm []byte) time.Duration {
	return time.Duration(inference.AudioSeconds(pcm) * float64(time.Second))
}

// CanonicalWAV returns the samples of a RIFF/WAVE file that is already PCM
// s16le, mono, 16 kHz
func CanonicalWAV(data []byte) ([]byte, bool) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, false
	}
	canonical := false
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, false
			}
			f := data[body:]
			canonical = binary.LittleEndian.Uint16(f[0:2]) == 1 && // PCM
				binary.LittleEndian.Uint16(f[2:4]) == 1 &&
				binary.LittleEndian.Uint32(f[4:8]) == inference.SampleRate &&
				binary.LittleEndian.Uint16(f[14:16]) == 16
		case "data":
			if !canonical {
				return nil, false
			}
			end := body + size
			if end > len(data) || size == 0 {
				end = len(data)
			}
			return data[body:end], true
		}
		off = body + size + size%2
	}
	return nil, false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
