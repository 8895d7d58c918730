package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/api/handlers"
	"github.com/nba-insights/backend/internal/cache/redis"
	"github.com/nba-insights/backend/internal/intent"
	"github.com/nba-insights/backend/internal/llm"
	"github.com/nba-insights/backend/internal/metrics"
	ratelimitmw "github.com/nba-insights/backend/internal/middleware/ratelimit"
	"github.com/nba-insights/backend/internal/middleware/validation"
	"github.com/nba-insights/backend/internal/rag"
	"github.com/nba-insights/backend/internal/scraper"
	"github.com/nba-insights/backend/internal/stats"
	"github.com/nba-insights/backend/internal/storage/sqlite"
	"github.com/nba-insights/backend/internal/vector"
	"github.com/nba-insights/backend/pkg/config"
	appLogger "github.com/nba-insights/backend/pkg/logger"
	"github.com/nba-insights/backend/pkg/ratelimit"
	"github.com/nba-insights/backend/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting NBA Insights API Server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var embeddingCache *redis.Cache
	if cfg.Redis.Enabled {
		embeddingCache, err = redis.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
			embeddingCache = nil
		} else {
			defer embeddingCache.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		embeddingCache,
	)

	store := vector.NewStore(llmClient, cfg.Index.EmbeddingDim)
	interpreter := intent.NewInterpreter(llmClient)

	statsPolicy := retry.DefaultPolicy()
	statsPolicy.MaxAttempts = cfg.Stats.MaxRetries
	statsClient := stats.NewClient(stats.Config{
		BaseURL:      cfg.Stats.BaseURL,
		APIKey:       cfg.Stats.APIKey,
		PageDelay:    time.Duration(cfg.Stats.PageDelayMS) * time.Millisecond,
		RetryPolicy:  statsPolicy,
		RetryBackoff: time.Duration(cfg.Stats.RetryBackoffMS) * time.Millisecond,
	}, ratelimit.New(cfg.Stats.RequestsPerMinute))
	aggregator := stats.NewAggregator(statsClient)

	agent := rag.NewAgent(store, sqliteClient, llmClient, interpreter, aggregator, sqliteClient, cfg.Index.DefaultTopK)

	siteScraper := scraper.New(
		cfg.Scraper.BaseURL,
		cfg.Scraper.UserAgent,
		time.Duration(cfg.Scraper.DelaySec)*time.Second,
		sqliteClient,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	limiter := ratelimitmw.New(ratelimitmw.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	analysisHandler := handlers.NewAnalysisHandler(agent, sqliteClient, embeddingCache)
	winsHandler := handlers.NewWinsHandler(agent)
	ingestHandler := handlers.NewIngestHandler(siteScraper)
	wsHandler := handlers.NewWebSocketHandler(agent)

	api := app.Group("/api/v1")

	api.Post("/analyze", analysisHandler.HandleAnalyze)
	api.Post("/wins", winsHandler.HandleWins)
	api.Post("/index/rebuild", analysisHandler.HandleRebuildIndex)
	api.Get("/history", analysisHandler.GetHistory)

	api.Post("/ingest/teams", ingestHandler.HandleIngestTeams)
	api.Post("/ingest/seasons", ingestHandler.HandleIngestSeasons)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analyze", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ready",
			"documents": store.Len(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
