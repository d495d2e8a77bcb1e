package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"whisper-asr-webservice/internal/api/errors"
	"whisper-asr-webservice/internal/api/middleware"
	"whisper-asr-webservice/internal/api/v1/dto"
	"whisper-asr-webservice/internal/api/v1/services"
	"whisper-asr-webservice/internal/app/dispatcher"
)

// MaxUploadBytes bounds the size of an uploaded audio file
const MaxUploadBytes = 1 << 30

// ASRHandler serves the transcription endpoints
type ASRHandler struct {
	service services.ASRService
}

// NewASRHandler creates a new ASR handler
func NewASRHandler(service services.ASRService) *ASRHandler {
	return &ASRHandler{service: service}
}

// ASR handles POST /asr
//
// @Summary Transcribe or translate an audio file
// @Tags Endpoints
// @Accept multipart/form-data
// @Produce plain
// @Param audio_file formData file true "Audio file"
// @Param encode query bool false "Encode audio first through ffmpeg" default(true)
// @Param task query string false "Task" Enums(transcribe,translate) default(transcribe)
// @Param language query string false "Language code"
// @Param initial_prompt query string false "Initial prompt"
// @Param vad_filter query bool false "Filter out parts of the audio without speech"
// @Param word_timestamps query bool false "Word level timestamps"
// @Param diarize query bool false "Diarize the input"
// @Param min_speakers query int false "Min speakers in this file"
// @Param max_speakers query int false "Max speakers in this file"
// @Param output query string false "Output format" Enums(txt,vtt,srt,tsv,json) default(txt)
// @Success 200 {string} string "Transcript"
// @Failure 400 {object} errors.APIError "Option not supported by the engine"
// @Failure 422 {object} errors.APIError "Validation error"
// @Failure 502 {object} errors.APIError "Model failed to load"
// @Failure 503 {object} errors.APIError "All model slots in use"
// @Router /asr [post]
func (h *ASRHandler) ASR(c *gin.Context) {
	var query dto.ASRQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.HandleError(c, err)
		return
	}
	upload, err := readUpload(c, "audio_file", query.ShouldEncode())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	out, err := h.service.Transcribe(c.Request.Context(), upload, query.Options(), "")
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	writeOutput(c, upload.Filename, out)
}

// Transcriptions handles POST /audio/transcriptions
//
// @Summary OpenAI-compatible transcription
// @Tags Endpoints
// @Accept multipart/form-data
// @Produce plain
// @Param file formData file true "Audio file"
// @Param encode formData bool false "Encode audio first through ffmpeg" default(true)
// @Param language formData string false "Language code"
// @Param prompt formData string false "Initial prompt"
// @Param vad_filter formData bool false "Filter out parts of the audio without speech"
// @Param word_timestamps formData bool false "Word level timestamps"
// @Param diarize formData bool false "Diarize the input"
// @Param min_speakers formData int false "Min speakers in this file"
// @Param max_speakers formData int false "Max speakers in this file"
// @Param model formData string false "Model name" default(whisper-1)
// @Param response_format formData string false "Output format" Enums(txt,vtt,srt,tsv,json) default(json)
// @Success 200 {string} string "Transcript"
// @Failure 400 {object} errors.APIError "Option not supported by the engine"
// @Failure 422 {object} errors.APIError "Validation error"
// @Router /audio/transcriptions [post]
func (h *ASRHandler) Transcriptions(c *gin.Context) {
	var form dto.TranscriptionsForm
	if err := middleware.ValidateForm(c, &form); err != nil {
		middleware.HandleError(c, err)
		return
	}
	upload, err := readUpload(c, "file", form.ShouldEncode())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	out, err := h.service.Transcribe(c.Request.Context(), upload, form.Options(), form.Model)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	writeOutput(c, upload.Filename, out)
}

// DetectLanguage handles POST /detect-language
//
// @Summary Detect the spoken language
// @Tags Endpoints
// @Accept multipart/form-data
// @Produce json
// @Param audio_file formData file true "Audio file"
// @Param encode query bool false "Encode audio first through ffmpeg" default(true)
// @Success 200 {object} dto.DetectLanguageResponse
// @Failure 422 {object} errors.APIError "Validation error"
// @Router /detect-language [post]
func (h *ASRHandler) DetectLanguage(c *gin.Context) {
	var query dto.DetectLanguageQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.HandleError(c, err)
		return
	}
	upload, err := readUpload(c, "audio_file", query.ShouldEncode())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp, err := h.service.DetectLanguage(c.Request.Context(), upload)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Header("Asr-Engine", string(h.service.Engine()))
	c.JSON(http.StatusOK, resp)
}

func readUpload(c *gin.Context, field string, encode bool) (services.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, errors.NewValidationError("Validation failed", map[string]string{field: "is required"})
	}
	if header.Size > MaxUploadBytes {
		return services.Upload{}, errors.NewValidationError("Validation failed", map[string]string{field: "is too large"})
	}
	file, err := header.Open()
	if err != nil {
		return services.Upload{}, errors.NewBadRequestError("cannot read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Upload{}, errors.NewBadRequestError("cannot read upload")
	}
	return services.Upload{Data: data, Filename: header.Filename, Encode: encode}, nil
}

func writeOutput(c *gin.Context, filename string, out *dispatcher.Output) {
	c.Header("Asr-Engine", string(out.Engine))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, url.PathEscape(filename), out.Extension))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
