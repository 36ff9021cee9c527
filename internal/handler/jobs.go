package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/service"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
	"github.com/voxscribe/api/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /transcribe-youtube
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitYoutubeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /status/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobNotFound(c, jobID)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /result/:jobId
func (h *JobHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobNotFound(c, jobID)
		}
		if errors.Is(err, storage.ErrNotFound) {
			// The record says done but the artifact is gone.
			return response.NotFound(c, "Transcript not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// jobNotFound is the single representation for unknown job ids on the
// polling endpoints.
func jobNotFound(c *fiber.Ctx, jobID string) error {
	return c.Status(fiber.StatusNotFound).JSON(model.JobStatusResponse{
		JobID:  jobID,
		Status: model.StatusNotFound,
	})
}
