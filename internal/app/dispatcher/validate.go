package dispatcher

import (
	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// Validate rejects malformed requests before any model is touched
func Validate(req *model.TranscriptionRequest) error {
	if req == nil || len(req.Audio) == 0 {
		return errors.RequiredField("audio_file")
	}
	if err := validateKey(req.Key); err != nil {
		return err
	}
	opts := req.Options
	if f, ok := model.ParseOutputFormat(string(opts.Output)); !ok || f != opts.Output {
		return errors.InvalidField("output", "must be one of txt, json, vtt, srt, tsv")
	}
	switch opts.Task {
	case "", model.TaskTranscribe, model.TaskTranslate:
	default:
		return errors.InvalidField("task", "must be transcribe or translate")
	}
	if opts.Language != "" && !model.IsLanguage(opts.Language) {
		return errors.InvalidField("language", "unknown language code "+opts.Language)
	}
	if opts.MinSpeakers < 0 || opts.MaxSpeakers < 0 {
		return errors.InvalidField("speakers", "must not be negative")
	}
	if opts.MinSpeakers > 0 && opts.MaxSpeakers > 0 && opts.MinSpeakers > opts.MaxSpeakers {
		return errors.InvalidField("min_speakers", "exceeds max_speakers")
	}
	return nil
}

func validateKey(key model.ModelKey) error {
	if key.Engine == "" {
		return errors.RequiredField("engine")
	}
	if key.Name == "" {
		return errors.RequiredField("model")
	}
	switch key.Device {
	case model.DeviceCPU, model.DeviceCUDA:
	default:
		return errors.InvalidField("device", "must be cpu or cuda")
	}
	return nil
}
