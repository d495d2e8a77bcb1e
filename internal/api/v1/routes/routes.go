package routes

import (
	"github.com/gin-gonic/gin"

	"whisper-asr-webservice/internal/api/v1/handlers"
	"whisper-asr-webservice/internal/api/v1/services"
)

// ServiceContainer holds the services behind the routes
type ServiceContainer struct {
	ASRService   services.ASRService
	ModelService services.ModelService
}

// RegisterRoutes registers the transcription and model routes
func RegisterRoutes(router gin.IRouter, container *ServiceContainer) {
	asr := handlers.NewASRHandler(container.ASRService)
	router.POST("/asr", asr.ASR)
	router.POST("/audio/transcriptions", asr.Transcriptions)
	router.POST("/detect-language", asr.DetectLanguage)

	if container.ModelService != nil {
		models := handlers.NewModelHandler(container.ModelService)
		group := router.Group("/models")
		{
			group.GET("", models.List)
			group.DELETE("/:engine/:name", models.Unload)
		}
	}
}
