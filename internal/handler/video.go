package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/search"
)

type VideoHandler struct {
	videoRepo *repo.VideoRepo
	search    *search.Client
}

func NewVideoHandler(videoRepo *repo.VideoRepo, searchClient *search.Client) *VideoHandler {
	return &VideoHandler{videoRepo: videoRepo, search: searchClient}
}

type ListVideosResponse struct {
	Items []repo.Video `json:"items"`
	Total int64        `json:"total"`
}

// List godoc
// @Summary List canonical videos
// @Tags videos
// @Produce json
// @Param title query string false "Filter by title (partial match)"
// @Param year query string false "Filter by year"
// @Param source query string false "Filter by contributing source name"
// @Param valid_only query bool false "Only valid records" default(true)
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} ListVideosResponse
// @Router /api/videos [get]
func (h *VideoHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)
	if limit > 1000 {
		limit = 1000
	}

	filter := repo.VideoFilter{
		Title:      c.Query("title"),
		Year:       c.Query("year"),
		SourceName: c.Query("source"),
		OnlyValid:  c.QueryBool("valid_only", true),
		Limit:      limit,
		Offset:     offset,
	}

	videos, total, err := h.videoRepo.FindAll(c.Context(), filter)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to fetch videos"})
	}

	if videos == nil {
		videos = []repo.Video{}
	}

	return c.JSON(ListVideosResponse{Items: videos, Total: total})
}

// Get godoc
// @Summary Get canonical video by ID
// @Tags videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} repo.Video
// @Failure 404 {object} ErrorResponse
// @Router /api/videos/{id} [get]
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	video, err := h.videoRepo.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to fetch video"})
	}
	if video == nil {
		return c.Status(404).JSON(ErrorResponse{Error: "video not found"})
	}

	return c.JSON(video)
}

type SearchResponse struct {
	Items []search.VideoDocument `json:"items"`
}

// Search godoc
// @Summary Keyword search over the catalog
// @Tags videos
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Limit" default(20)
// @Param include_invalid query bool false "Include soft-invalidated records"
// @Success 200 {object} SearchResponse
// @Router /api/videos/search [get]
func (h *VideoHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(400).JSON(ErrorResponse{Error: "q is required"})
	}

	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	if limit > 100 {
		limit = 100
	}

	docs, err := h.search.Search(c.Context(), query, limit, c.QueryBool("include_invalid", false))
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "search failed"})
	}

	return c.JSON(SearchResponse{Items: docs})
}
