package model

import (
	"fmt"
	"strings"
	"time"
)

// EngineKind identifies a speech-recognition backend
type EngineKind string

const (
	EngineOpenAIWhisper EngineKind = "openai_whisper"
	EngineFasterWhisper EngineKind = "faster_whisper"
	EngineWhisperX      EngineKind = "whisperx"
)

// EngineKinds lists every engine in a stable order
var EngineKinds = []EngineKind{EngineOpenAIWhisper, EngineFasterWhisper, EngineWhisperX}

// ParseEngineKind parses an ASR_ENGINE value
func ParseEngineKind(s string) (EngineKind, error) {
	switch kind := EngineKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case EngineOpenAIWhisper, EngineFasterWhisper, EngineWhisperX:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown engine %q (expected one of openai_whisper, faster_whisper, whisperx)", s)
	}
}

// Device is where a model's weights are placed
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ParseDevice parses an ASR_DEVICE value; "gpu" is accepted as an alias of "cuda"
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return DeviceCPU, nil
	case "cuda", "gpu":
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("unknown device %q (expected cpu or cuda)", s)
	}
}

// ModelKey identifies one loadable unit: which weights, on which device, under which engine.
// It is comparable and used directly as a map key.
type ModelKey struct {
	Engine EngineKind `json:"engine"`
	Name   string     `json:"model"`
	Device Device     `json:"device"`
}

func (k ModelKey) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Engine, k.Name, k.Device)
}

// Task selects between transcription and translation to English
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// OutputFormat is the serialization requested for a transcription result
type OutputFormat string

const (
	FormatTXT  OutputFormat = "txt"
	FormatJSON OutputFormat = "json"
	FormatVTT  OutputFormat = "vtt"
	FormatSRT  OutputFormat = "srt"
	FormatTSV  OutputFormat = "tsv"
)

// OutputFormats lists the allowed output formats
var OutputFormats = []OutputFormat{FormatTXT, FormatJSON, FormatVTT, FormatSRT, FormatTSV}

// ParseOutputFormat parses an output format name; "text" is an alias of "txt"
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTXT, FormatJSON, FormatVTT, FormatSRT, FormatTSV:
		return f, true
	case "text":
		return FormatTXT, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type served for the format
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension used in Content-Disposition
func (f OutputFormat) Extension() string {
	return string(f)
}

// Options are the per-request transcription options
type Options struct {
	Task           Task         `json:"task,omitempty"`
	Language       string       `json:"language,omitempty"`
	InitialPrompt  string       `json:"initial_prompt,omitempty"`
	WordTimestamps bool         `json:"word_timestamps,omitempty"`
	VADFilter      bool         `json:"vad_filter,omitempty"`
	Diarize        bool         `json:"diarize,omitempty"`
	MinSpeakers    int          `json:"min_speakers,omitempty"`
	MaxSpeakers    int          `json:"max_speakers,omitempty"`
	Output         OutputFormat `json:"output"`
}

// TranscriptionRequest is what the transport hands to the dispatcher
type TranscriptionRequest struct {
	// Audio is the normalized (16 kHz mono s16le) audio stream
	Audio    []byte
	Key      ModelKey
	Options  Options
	Filename string
}

// Result is an ordered sequence of transcribed segments
type Result struct {
	Language string        `json:"language,omitempty"`
	Duration time.Duration `json:"-"`
	Segments []Segment     `json:"segments"`
}

// Segment is a time-bounded piece of transcription
type Segment struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"` // seconds
	End     float64 `json:"end"`   // seconds
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// Word is a single word with timing information
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Text joins the segment texts
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// HasTimestamps reports whether every segment carries a usable time range.
// A result without segments, such as silent audio, has nothing to time.
func (r *Result) HasTimestamps() bool {
	if r == nil {
		return false
	}
	for _, s := range r.Segments {
		if s.End < s.Start || (s.Start == 0 && s.End == 0) {
			return false
		}
	}
	return true
}

// LanguageDetection is the outcome of spoken-language identification
type LanguageDetection struct {
	Language   string  `json:"language_code"`
	Confidence float64 `json:"confidence"`
}
