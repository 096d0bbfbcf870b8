package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vodhub/backend/internal/repo"
)

type TaskHandler struct {
	taskRepo *repo.TaskRepo
}

func NewTaskHandler(taskRepo *repo.TaskRepo) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo}
}

// Get godoc
// @Summary Get collection task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} repo.CollectionTask
// @Failure 404 {object} ErrorResponse
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	task, err := h.taskRepo.FindByID(c.Context(), id)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to fetch task"})
	}
	if task == nil {
		return c.Status(404).JSON(ErrorResponse{Error: "task not found"})
	}

	return c.JSON(task)
}

type ListTasksResponse struct {
	Items []repo.CollectionTask `json:"items"`
	Total int64                 `json:"total"`
}

// List godoc
// @Summary List recent collection tasks
// @Tags tasks
// @Produce json
// @Param type query string false "Filter by type (incremental, full, category)"
// @Param status query string false "Filter by status (pending, running, completed, failed, cancelled)"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} ListTasksResponse
// @Router /api/tasks [get]
func (h *TaskHandler) List(c *fiber.Ctx) error {
	taskType := c.Query("type")
	taskStatus := c.Query("status")
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)

	if limit > 1000 {
		limit = 1000
	}

	tasks, total, err := h.taskRepo.FindWithPagination(c.Context(), taskType, taskStatus, limit, offset)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to fetch tasks"})
	}

	if tasks == nil {
		tasks = []repo.CollectionTask{}
	}

	return c.JSON(ListTasksResponse{Items: tasks, Total: total})
}

// Cancel godoc
// @Summary Cancel a running collection task
// @Description Flags the task for cancellation; the orchestrator stops at the next page boundary
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} ErrorResponse
// @Router /api/tasks/{id}/cancel [post]
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")

	flagged, err := h.taskRepo.RequestCancel(c.Context(), id)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to request cancellation"})
	}
	if !flagged {
		return c.Status(409).JSON(ErrorResponse{Error: "task is not active"})
	}

	return c.JSON(fiber.Map{"status": "cancellation requested"})
}
