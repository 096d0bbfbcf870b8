package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/status"
)

type SourceHandler struct {
	sourceRepo *repo.SourceRepo
}

func NewSourceHandler(sourceRepo *repo.SourceRepo) *SourceHandler {
	return &SourceHandler{sourceRepo: sourceRepo}
}

// List godoc
// @Summary List configured resource sites
// @Tags sources
// @Produce json
// @Success 200 {array} repo.SourceSite
// @Router /api/sources [get]
func (h *SourceHandler) List(c *fiber.Ctx) error {
	sites, err := h.sourceRepo.FindAll(c.Context())
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to fetch sources"})
	}
	if sites == nil {
		sites = []repo.SourceSite{}
	}
	return c.JSON(sites)
}

// Create godoc
// @Summary Register a resource site
// @Tags sources
// @Accept json
// @Produce json
// @Param request body repo.SourceSite true "Source site"
// @Success 201 {object} repo.SourceSite
// @Failure 400 {object} ErrorResponse
// @Router /api/sources [post]
func (h *SourceHandler) Create(c *fiber.Ctx) error {
	var site repo.SourceSite
	if err := c.BodyParser(&site); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if site.Name == "" || site.BaseURL == "" {
		return c.Status(400).JSON(ErrorResponse{Error: "name and base_url are required"})
	}
	if site.SourceType != "" && !site.SourceType.Valid() {
		return c.Status(400).JSON(ErrorResponse{Error: "source_type must be cms or tvbox"})
	}

	if err := h.sourceRepo.Create(c.Context(), &site); err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to create source"})
	}
	return c.Status(201).JSON(site)
}

// Update godoc
// @Summary Update a resource site
// @Tags sources
// @Accept json
// @Produce json
// @Param id path string true "Source ID"
// @Param request body repo.SourceSite true "Source site"
// @Success 200 {object} repo.SourceSite
// @Failure 400 {object} ErrorResponse
// @Router /api/sources/{id} [put]
func (h *SourceHandler) Update(c *fiber.Ctx) error {
	var site repo.SourceSite
	if err := c.BodyParser(&site); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if site.SourceType == "" {
		site.SourceType = status.SourceCMS
	}

	if err := h.sourceRepo.Update(c.Context(), c.Params("id"), &site); err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to update source"})
	}
	return c.JSON(site)
}

// Delete godoc
// @Summary Remove a resource site
// @Tags sources
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} map[string]string
// @Router /api/sources/{id} [delete]
func (h *SourceHandler) Delete(c *fiber.Ctx) error {
	if err := h.sourceRepo.Delete(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to delete source"})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
