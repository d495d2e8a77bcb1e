package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"whisper-asr-webservice/internal/api/errors"
)

// Validator interface for domain validation
type Validator interface {
	Validate() error
}

// ValidateQuery binds query parameters into req and checks its tags and domain rules
func ValidateQuery(c *gin.Context, req interface{}) error {
	return validate(c.ShouldBindWith(req, binding.Query), req)
}

// ValidateForm binds multipart form fields into req and checks its tags and domain rules
func ValidateForm(c *gin.Context, req interface{}) error {
	return validate(c.ShouldBindWith(req, binding.FormMultipart), req)
}

func validate(bindErr error, req interface{}) error {
	if bindErr != nil {
		fields := make(map[string]string)
		if validationErrs, ok := bindErr.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrs {
				field := strings.ToLower(fieldError.Field())
				switch fieldError.Tag() {
				case "required":
					fields[field] = "is required"
				case "min", "gte":
					fields[field] = "is too small"
				case "max", "lte":
					fields[field] = "is too large"
				case "oneof":
					fields[field] = "must be one of " + strings.ReplaceAll(fieldError.Param(), " ", ", ")
				default:
					fields[field] = "is invalid"
				}
			}
		} else {
			fields["request"] = bindErr.Error()
		}
		return errors.NewValidationError("Validation failed", fields)
	}

	if v, ok := req.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
