package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whisper-asr-webservice/internal/api/middleware"
	"whisper-asr-webservice/internal/api/v1/services"
	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// ModelHandler serves the model lifecycle endpoints
type ModelHandler struct {
	service services.ModelService
}

// NewModelHandler creates a new model handler
func NewModelHandler(service services.ModelService) *ModelHandler {
	return &ModelHandler{service: service}
}

// List handles GET /models
//
// @Summary Loaded models and their lifecycle state
// @Tags Models
// @Produce json
// @Success 200 {object} dto.ModelsResponse
// @Router /models [get]
func (h *ModelHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

// Unload handles DELETE /models/:engine/:name
//
// @Summary Unload an idle model
// @Tags Models
// @Param engine path string true "Engine" Enums(openai_whisper,faster_whisper,whisperx)
// @Param name path string true "Model name"
// @Param device query string false "Device" Enums(cpu,cuda) default(cpu)
// @Success 204
// @Failure 404 {object} errors.APIError "Model not loaded"
// @Failure 409 {object} errors.APIError "Model in use or loading"
// @Router /models/{engine}/{name} [delete]
func (h *ModelHandler) Unload(c *gin.Context) {
	engine, err := model.ParseEngineKind(c.Param("engine"))
	if err != nil {
		middleware.HandleError(c, errors.InvalidField("engine", err.Error()))
		return
	}
	device, err := model.ParseDevice(c.DefaultQuery("device", string(model.DeviceCPU)))
	if err != nil {
		middleware.HandleError(c, errors.InvalidField("device", err.Error()))
		return
	}

	key := model.ModelKey{Engine: engine, Name: c.Param("name"), Device: device}
	if err := h.service.Unload(c.Request.Context(), key); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
