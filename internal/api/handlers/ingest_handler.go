package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/scraper"
	"github.com/nba-insights/backend/pkg/logger"
)

type IngestHandler struct {
	scraper *scraper.Scraper
}

func NewIngestHandler(s *scraper.Scraper) *IngestHandler {
	return &IngestHandler{scraper: s}
}

func (h *IngestHandler) HandleIngestTeams(c *fiber.Ctx) error {
	count, err := h.scraper.ScrapeTeams(c.Context())
	if err != nil {
		logger.Error("Team ingest failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to ingest teams",
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"teams":  count,
	})
}

// HandleIngestSeasons scrapes an inclusive range of season schedules.
// This is a long call; the scraper sleeps between page fetches.
func (h *IngestHandler) HandleIngestSeasons(c *fiber.Ctx) error {
	var req struct {
		StartYear int `json:"start_year"`
		EndYear   int `json:"end_year"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.StartYear == 0 || req.EndYear == 0 || req.EndYear < req.StartYear {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "start_year and end_year are required, start_year <= end_year",
		})
	}

	total := 0
	for year := req.StartYear; year <= req.EndYear; year++ {
		n, err := h.scraper.ScrapeSeason(c.Context(), year)
		total += n
		if err != nil {
			logger.Error("Season ingest failed", zap.Int("year", year), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":  "Failed to ingest seasons",
				"games":  total,
				"failed": year,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"games":  total,
	})
}
