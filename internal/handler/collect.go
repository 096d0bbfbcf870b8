package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vodhub/backend/internal/collect"
	"github.com/vodhub/backend/pkg/status"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CollectHandler struct {
	orchestrator *collect.Orchestrator
}

func NewCollectHandler(orchestrator *collect.Orchestrator) *CollectHandler {
	return &CollectHandler{orchestrator: orchestrator}
}

type TriggerRequest struct {
	TaskType string `json:"task_type"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type TriggerResponse struct {
	TaskID string `json:"task_id"`
}

// Trigger godoc
// @Summary Trigger a collection run
// @Description Starts an incremental, full or category collection run and returns immediately
// @Tags collect
// @Accept json
// @Produce json
// @Param request body TriggerRequest true "Run parameters"
// @Success 202 {object} TriggerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/collect [post]
func (h *CollectHandler) Trigger(c *fiber.Ctx) error {
	var req TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "invalid request body"})
	}

	taskType := status.TaskType(req.TaskType)
	if !taskType.Valid() {
		return c.Status(400).JSON(ErrorResponse{Error: "task_type must be incremental, full or category"})
	}

	var (
		taskID string
		err    error
	)
	switch taskType {
	case status.TypeIncremental:
		taskID, err = h.orchestrator.RunIncremental(c.Context(), req.Limit)
	case status.TypeFull:
		taskID, err = h.orchestrator.RunFull(c.Context())
	case status.TypeCategory:
		if req.Category == "" {
			return c.Status(400).JSON(ErrorResponse{Error: "category is required for category runs"})
		}
		taskID, err = h.orchestrator.RunCategory(c.Context(), req.Category, req.Limit)
	}

	if err != nil {
		if errors.Is(err, collect.ErrScopeBusy) {
			return c.Status(409).JSON(ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, collect.ErrNoSources) {
			return c.Status(400).JSON(ErrorResponse{Error: err.Error()})
		}
		return c.Status(500).JSON(ErrorResponse{Error: "failed to start collection run"})
	}

	return c.Status(202).JSON(TriggerResponse{TaskID: taskID})
}
