package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vodhub/backend/internal/queue"
	"github.com/vodhub/backend/internal/validate"
	"github.com/vodhub/backend/pkg/logger"
)

// ReportHandler accepts public dead-link reports. Reports are queued through
// NATS so a burst of reports never blocks the endpoint; the report worker
// drives the validator.
type ReportHandler struct {
	publisher *queue.Publisher
	validator *validate.Validator
	batchSize int64
}

func NewReportHandler(publisher *queue.Publisher, validator *validate.Validator, batchSize int64) *ReportHandler {
	return &ReportHandler{publisher: publisher, validator: validator, batchSize: batchSize}
}

type ReportRequest struct {
	VideoID   string `json:"vod_id"`
	VideoName string `json:"vod_name,omitempty"`
	PlayURL   string `json:"play_url"`
	ErrorType string `json:"error_type,omitempty"`
}

// Report godoc
// @Summary Report a dead playback link
// @Tags report
// @Accept json
// @Produce json
// @Param request body ReportRequest true "Dead link report"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /api/report [post]
func (h *ReportHandler) Report(c *fiber.Ctx) error {
	var req ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.VideoID == "" || req.PlayURL == "" {
		return c.Status(400).JSON(ErrorResponse{Error: "vod_id and play_url are required"})
	}

	report := queue.LinkReport{
		VideoID:    req.VideoID,
		VideoName:  req.VideoName,
		PlayURL:    req.PlayURL,
		ErrorType:  req.ErrorType,
		ReportedAt: time.Now(),
	}
	if err := h.publisher.PublishLinkReport(c.Context(), report); err != nil {
		logger.Log.Error().Err(err).Str("video", req.VideoID).Msg("failed to queue link report")
		return c.Status(500).JSON(ErrorResponse{Error: "failed to queue report"})
	}

	return c.Status(202).JSON(fiber.Map{"status": "queued"})
}

type ValidateRequest struct {
	Limit int64 `json:"limit,omitempty"`
}

// Validate godoc
// @Summary Run a validation batch now
// @Tags report
// @Accept json
// @Produce json
// @Param request body ValidateRequest false "Batch size"
// @Success 200 {object} validate.Stats
// @Router /api/validate [post]
func (h *ReportHandler) Validate(c *fiber.Ctx) error {
	var req ValidateRequest
	c.BodyParser(&req)

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = h.batchSize
	}

	stats, err := h.validator.ValidateBatch(c.Context(), limit)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "validation batch failed"})
	}
	return c.JSON(stats)
}
