// Package format renders transcription results in the output formats the
// service offers.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// Render serializes result as f
func Render(f model.OutputFormat, result *model.Result) ([]byte, error) {
	if result == nil {
		return nil, &errors.FormatError{Format: f, Reason: "no result"}
	}
	switch f {
	case model.FormatTXT:
		return TXT(result), nil
	case model.FormatJSON:
		return JSON(result)
	case model.FormatVTT, model.FormatSRT, model.FormatTSV:
		if !result.HasTimestamps() {
			return nil, &errors.FormatError{Format: f, Reason: "result has no segment timestamps", Result: result}
		}
		switch f {
		case model.FormatVTT:
			return VTT(result), nil
		case model.FormatSRT:
			return SRT(result), nil
		default:
			return TSV(result), nil
		}
	}
	return nil, &errors.FormatError{Format: f, Reason: "unknown output format", Result: result}
}

// TXT writes one trimmed segment text per line
func TXT(result *model.Result) []byte {
	var b bytes.Buffer
	for _, s := range result.Segments {
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

type document struct {
	Text     string          `json:"text"`
	Language string          `json:"language,omitempty"`
	Segments []model.Segment `json:"segments"`
}

// JSON writes {"text","language","segments"}
func JSON(result *model.Result) ([]byte, error) {
	segments := result.Segments
	if segments == nil {
		segments = []model.Segment{}
	}
	data, err := json.Marshal(document{Text: result.Text(), Language: result.Language, Segments: segments})
	if err != nil {
		return nil, &errors.FormatError{Format: model.FormatJSON, Reason: err.Error(), Result: result}
	}
	return data, nil
}

// ParseJSON reads a document written by JSON
func ParseJSON(data []byte) (*model.Result, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse json transcript")
	}
	return &model.Result{Language: doc.Language, Segments: doc.Segments}, nil
}

// VTT writes a WebVTT document; diarized segments get a voice tag
func VTT(result *model.Result) []byte {
	var b bytes.Buffer
	b.WriteString("WEBVTT\n\n")
	for _, s := range result.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", Timestamp(s.Start, true, "."), Timestamp(s.End, true, "."))
		text := cueText(s.Text)
		if s.Speaker != "" {
			text = fmt.Sprintf("<v %s>%s", s.Speaker, text)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.Bytes()
}

// SRT writes numbered SubRip cues
func SRT(result *model.Result) []byte {
	var b bytes.Buffer
	for i, s := range result.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, Timestamp(s.Start, true, ","), Timestamp(s.End, true, ","))
		text := cueText(s.Text)
		if s.Speaker != "" {
			text = fmt.Sprintf("[%s]: %s", s.Speaker, text)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.Bytes()
}

// TSV writes start and end in integer milliseconds
func TSV(result *model.Result) []byte {
	var b bytes.Buffer
	b.WriteString("start\tend\ttext\n")
	for _, s := range result.Segments {
		text := strings.ReplaceAll(strings.TrimSpace(s.Text), "\t", " ")
		fmt.Fprintf(&b, "%d\t%d\t%s\n", millis(s.Start), millis(s.End), text)
	}
	return b.Bytes()
}

// Timestamp renders seconds as [HH:]MM:SS<sep>mmm
func Timestamp(seconds float64, alwaysHours bool, sep string) string {
	ms := millis(seconds)
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000
	if alwaysHours || hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, sep, ms)
	}
	return fmt.Sprintf("%02d:%02d%s%03d", minutes, secs, sep, ms)
}

func millis(seconds float64) int64 {
	if seconds < 0 {
		seconds = 0
	}
	return int64(math.Round(seconds * 1000))
}

// cueText keeps cue payloads on one block; "-->" would start a new cue
func cueText(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-->", "->")
}
