package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/cache/redis"
	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/internal/rag"
	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
)

// HistoryReader serves past analyses. The SQLite client satisfies it.
type HistoryReader interface {
	QueryHistory(limit int) ([]models.QueryRecord, error)
}

type AnalysisHandler struct {
	agent   *rag.Agent
	history HistoryReader
	cache   *redis.Cache
}

func NewAnalysisHandler(agent *rag.Agent, history HistoryReader, cache *redis.Cache) *AnalysisHandler {
	return &AnalysisHandler{
		agent:   agent,
		history: history,
		cache:   cache,
	}
}

func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
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
	result, err := h.agent.Analyze(c.Context(), req.Query, req.TopK)
	metrics.QueryDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryTotal.WithLabelValues("analyze", "error").Inc()
		logger.Error("Failed to process analysis", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}
	metrics.QueryTotal.WithLabelValues("analyze", "success").Inc()

	return c.JSON(result)
}

func (h *AnalysisHandler) HandleRebuildIndex(c *fiber.Ctx) error {
	if h.cache != nil {
		if err := h.cache.Flush(c.Context()); err != nil {
			logger.Warn("Failed to flush embedding cache before rebuild", zap.Error(err))
		}
	}

	if err := h.agent.BuildIndex(c.Context(), true); err != nil {
		logger.Error("Index rebuild failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rebuild index",
		})
	}

	return c.JSON(fiber.Map{
		"status": "rebuilt",
	})
}

func (h *AnalysisHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.history.QueryHistory(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}
	if records == nil {
		records = []models.QueryRecord{}
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
