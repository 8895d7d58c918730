package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/internal/rag"
	"github.com/nba-insights/backend/pkg/logger"
)

type WinsHandler struct {
	agent *rag.Agent
}

func NewWinsHandler(agent *rag.Agent) *WinsHandler {
	return &WinsHandler{agent: agent}
}

// HandleWins interprets the query and returns structured win counts
// suitable for charting.
func (h *WinsHandler) HandleWins(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	start := time.Now()
	result, err := h.agent.WinsAnalysis(c.Context(), req.Query)
	metrics.QueryDuration.WithLabelValues("wins").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryTotal.WithLabelValues("wins", "error").Inc()
		logger.Error("Failed to process wins query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}
	metrics.QueryTotal.WithLabelValues("wins", "success").Inc()

	return c.JSON(result)
}
