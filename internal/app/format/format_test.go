package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

func sample() *model.Result {
	return &model.Result{
		Language: "en",
		Segments: []model.Segment{
			{ID: 0, Start: 0, End: 1.5, Text: " Hello there.", Words: []model.Word{
				{Word: "Hello", Start: 0, End: 0.6, Confidence: 0.9},
				{Word: "there.", Start: 0.7, End: 1.5, Confidence: 0.8},
			}},
			{ID: 1, Start: 3661.25, End: 3662, Text: " General Kenobi."},
		},
	}
}

func TestTXT(t *testing.T) {
	out, err := Render(model.FormatTXT, sample())
	require.NoError(t, err)
	assert.Equal(t, "Hello there.\nGeneral Kenobi.\n", string(out))
}

func TestVTT(t *testing.T) {
	out, err := Render(model.FormatVTT, sample())
	require.NoError(t, err)
	assert.Equal(t, "WEBVTT\n\n"+
		"00:00:00.000 --> 00:00:01.500\nHello there.\n\n"+
		"01:01:01.250 --> 01:01:02.000\nGeneral Kenobi.\n\n", string(out))
}

func TestSRTWithSpeakers(t *testing.T) {
	r := sample()
	r.Segments[0].Speaker = "SPEAKER_00"
	out, err := Render(model.FormatSRT, r)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,500\n[SPEAKER_00]: Hello there.\n\n"+
		"2\n01:01:01,250 --> 01:01:02,000\nGeneral Kenobi.\n\n", string(out))

	vtt := VTT(r)
	assert.Contains(t, string(vtt), "<v SPEAKER_00>Hello there.")
}

func TestTSV(t *testing.T) {
	out, err := Render(model.FormatTSV, sample())
	require.NoError(t, err)
	assert.Equal(t, "start\tend\ttext\n0\t1500\tHello there.\n3661250\t3662000\tGeneral Kenobi.\n", string(out))
}

func TestJSONRoundTrip(t *testing.T) {
	in := sample()
	out, err := Render(model.FormatJSON, in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"text":"Hello there. General Kenobi."`)

	back, err := ParseJSON(out)
	require.NoError(t, err)
	assert.Equal(t, in.Language, back.Language)
	assert.Equal(t, in.Segments, back.Segments)
}

func TestTimedFormatsNeedTimestamps(t *testing.T) {
	untimed := &model.Result{Segments: []model.Segment{{Text: "no timing"}}}
	for _, f := range []model.OutputFormat{model.FormatVTT, model.FormatSRT, model.FormatTSV} {
		_, err := Render(f, untimed)
		require.ErrorIs(t, err, errors.ErrFormat, f)
		fe, ok := errors.AsFormat(err)
		require.True(t, ok)
		assert.Same(t, untimed, fe.Result)
	}

	out, err := Render(model.FormatTXT, untimed)
	require.NoError(t, err)
	assert.Equal(t, "no timing\n", string(out))
}

func TestTimedFormatsOfSilence(t *testing.T) {
	silent := &model.Result{Language: "en"}
	want := map[model.OutputFormat]string{
		model.FormatVTT: "WEBVTT\n\n",
		model.FormatSRT: "",
		model.FormatTSV: "start\tend\ttext\n",
		model.FormatTXT: "",
	}
	for f, body := range want {
		out, err := Render(f, silent)
		require.NoError(t, err, f)
		assert.Equal(t, body, string(out), f)
	}
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "00:00.000", Timestamp(0, false, "."))
	assert.Equal(t, "01:05.999", Timestamp(65.9994, false, "."))
	assert.Equal(t, "02:00:00,000", Timestamp(7200, false, ","))
	assert.Equal(t, "00:00:00.000", Timestamp(-1, true, "."))
}
