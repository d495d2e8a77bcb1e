// Package docs holds the OpenAPI description served under /docs.
// Regenerate with: swag init -g cmd/asr/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/asr": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["text/plain"],
                "tags": ["Endpoints"],
                "summary": "Transcribe or translate an audio file",
                "parameters": [
                    {"type": "file", "description": "Audio file", "name": "audio_file", "in": "formData", "required": true},
                    {"type": "boolean", "default": true, "description": "Encode audio first through ffmpeg", "name": "encode", "in": "query"},
                    {"enum": ["transcribe", "translate"], "type": "string", "default": "transcribe", "name": "task", "in": "query"},
                    {"type": "string", "description": "Language code", "name": "language", "in": "query"},
                    {"type": "string", "name": "initial_prompt", "in": "query"},
                    {"type": "boolean", "description": "Filter out parts of the audio without speech", "name": "vad_filter", "in": "query"},
                    {"type": "boolean", "description": "Word level timestamps", "name": "word_timestamps", "in": "query"},
                    {"type": "boolean", "description": "Diarize the input", "name": "diarize", "in": "query"},
                    {"type": "integer", "name": "min_speakers", "in": "query"},
                    {"type": "integer", "name": "max_speakers", "in": "query"},
                    {"enum": ["txt", "vtt", "srt", "tsv", "json"], "type": "string", "default": "txt", "name": "output", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Transcript", "schema": {"type": "string"}},
                    "400": {"description": "Option not supported by the engine", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "502": {"description": "Model failed to load", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "503": {"description": "All model slots in use", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/audio/transcriptions": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["text/plain"],
                "tags": ["Endpoints"],
                "summary": "OpenAI-compatible transcription",
                "parameters": [
                    {"type": "file", "name": "file", "in": "formData", "required": true},
                    {"type": "boolean", "default": true, "name": "encode", "in": "formData"},
                    {"type": "string", "name": "language", "in": "formData"},
                    {"type": "string", "name": "prompt", "in": "formData"},
                    {"type": "boolean", "name": "vad_filter", "in": "formData"},
                    {"type": "boolean", "name": "word_timestamps", "in": "formData"},
                    {"type": "boolean", "name": "diarize", "in": "formData"},
                    {"type": "integer", "name": "min_speakers", "in": "formData"},
                    {"type": "integer", "name": "max_speakers", "in": "formData"},
                    {"type": "string", "default": "whisper-1", "name": "model", "in": "formData"},
                    {"enum": ["txt", "vtt", "srt", "tsv", "json"], "type": "string", "default": "json", "name": "response_format", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Transcript", "schema": {"type": "string"}},
                    "400": {"description": "Option not supported by the engine", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/detect-language": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Endpoints"],
                "summary": "Detect the spoken language",
                "parameters": [
                    {"type": "file", "name": "audio_file", "in": "formData", "required": true},
                    {"type": "boolean", "default": true, "name": "encode", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DetectLanguageResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Models"],
                "summary": "Loaded models and their lifecycle state",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/models/{engine}/{name}": {
            "delete": {
                "tags": ["Models"],
                "summary": "Unload an idle model",
                "parameters": [
                    {"enum": ["openai_whisper", "faster_whisper", "whisperx"], "type": "string", "name": "engine", "in": "path", "required": true},
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"enum": ["cpu", "cuda"], "type": "string", "default": "cpu", "name": "device", "in": "query"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Model not loaded", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "409": {"description": "Model in use or loading", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "dto.DetectLanguageResponse": {
            "type": "object",
            "properties": {
                "confidence": {"type": "number"},
                "detected_language": {"type": "string"},
                "language_code": {"type": "string"}
            }
        },
        "errors.APIError": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "whisper-asr-webservice",
	Description:      "Whisper ASR webservice with on-demand model loading",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
