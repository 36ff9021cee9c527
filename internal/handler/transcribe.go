package handler

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/service"
	"github.com/voxscribe/api/pkg/response"
)

type TranscribeHandler struct {
	service     *service.TranscribeService
	validator   *validator.Validate
	maxFileSize int64
}

func NewTranscribeHandler(svc *service.TranscribeService, v *validator.Validate, maxFileSizeMB int) *TranscribeHandler {
	return &TranscribeHandler{
		service:     svc,
		validator:   v,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
	}
}

// Audio handles POST /transcribe-audio (synchronous multipart upload)
func (h *TranscribeHandler) Audio(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		return response.ValidationError(c, "No file provided", nil)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !model.SupportedExtensions[ext] {
		return response.ValidationError(c,
			fmt.Sprintf("Unsupported file format. Supported formats: %s", supportedFormats()),
			map[string]interface{}{"extension": ext})
	}

	if file.Size > h.maxFileSize {
		return response.PayloadTooLarge(c,
			fmt.Sprintf("File too large. Maximum size: %dMB", h.maxFileSize/(1024*1024)),
			map[string]interface{}{"maxSize": h.maxFileSize, "fileSize": file.Size})
	}

	modelName := c.FormValue("model")
	if modelName != "" && !model.IsValidModel(modelName) {
		return response.ValidationError(c,
			fmt.Sprintf("Invalid model. Valid models: %s", validModels()), nil)
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.TranscribeUpload(c.Context(), file.Filename, f, modelName)
	if err != nil {
		return response.ProviderError(c, err.Error())
	}

	return response.OK(c, result)
}

// Models handles GET /models
func (h *TranscribeHandler) Models(c *fiber.Ctx) error {
	return response.OK(c, model.ModelsResponse{Models: model.ModelCatalog})
}

func supportedFormats() string {
	formats := make([]string, 0, len(model.SupportedExtensions))
	for ext := range model.SupportedExtensions {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return strings.Join(formats, ", ")
}

func validModels() string {
	names := make([]string, 0, len(model.ValidModels))
	for _, m := range model.ValidModels {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
