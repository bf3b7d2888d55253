package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/analysis"
	"github.com/campusbot/backend/internal/api/handlers"
	"github.com/campusbot/backend/internal/classifier"
	"github.com/campusbot/backend/internal/feedback"
	"github.com/campusbot/backend/internal/llm"
	"github.com/campusbot/backend/internal/metrics"
	"github.com/campusbot/backend/internal/onboarding"
	"github.com/campusbot/backend/internal/orchestrator"
	"github.com/campusbot/backend/internal/storage/sqlite"
	"github.com/campusbot/backend/pkg/config"
	appLogger "github.com/campusbot/backend/pkg/logger"
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

	appLogger.Info("Starting campus assistant backend")

	metrics.Init()

	store, err := sqlite.NewStore(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open SQLite store", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var sessions onboarding.SessionStore
	if cfg.Redis.Addr != "" {
		redisSessions, err := onboarding.NewRedisStore(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.DraftTTLMin)*time.Minute,
		)
		if err != nil {
			appLogger.Fatal("Failed to connect session store", zap.Error(err))
		}
		defer redisSessions.Close()
		sessions = redisSessions
	} else {
		appLogger.Warn("Redis not configured, onboarding drafts are process-local")
		sessions = onboarding.NewMemoryStore()
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	patterns := analysis.DefaultPatterns()
	if len(cfg.Analysis.TemplatePatterns) > 0 || len(cfg.Analysis.RefusalPatterns) > 0 {
		patterns, err = analysis.CompilePatterns(cfg.Analysis.TemplatePatterns, cfg.Analysis.RefusalPatterns)
		if err != nil {
			appLogger.Fatal("Invalid analysis patterns in config", zap.Error(err))
		}
	}

	grammar := analysis.NewLanguageTool(
		cfg.Grammar.Endpoint,
		time.Duration(cfg.Grammar.TimeoutSec)*time.Second,
	)
	pipeline := analysis.NewPipeline(patterns, grammar, cfg.Grammar.Languages)

	categorizer := classifier.New(llmClient, cfg.Classifier.MaxTokens)
	machine := onboarding.NewMachine(store, sessions)
	correlator := feedback.NewCorrelator(store)

	orch := orchestrator.New(
		store,
		llmClient,
		pipeline,
		categorizer,
		machine,
		cfg.Bot.SystemPrompt,
		cfg.Bot.ChunkSize,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	app.Use(recover.New())

	messageHandler := handlers.NewMessageHandler(orch, machine)
	eventHandler := handlers.NewEventHandler(correlator, machine)
	historyHandler := handlers.NewHistoryHandler(store)

	api := app.Group("/api/v1")
	api.Post("/messages", messageHandler.HandleMessage)
	api.Post("/events", eventHandler.HandleEvent)
	api.Get("/history", historyHandler.GetHistory)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	heartbeatCtx, stopHeartbeat := context.WithCancel(context.Background())
	defer stopHeartbeat()
	go heartbeatLoop(heartbeatCtx, store, time.Duration(cfg.Heartbeat.IntervalSec)*time.Second)

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
	stopHeartbeat()
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// heartbeatLoop refreshes the single-row liveness table; the dashboard treats
// a stale timestamp as the bot being down.
func heartbeatLoop(ctx context.Context, store *sqlite.Store, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := store.TouchHeartbeat(ctx, time.Now()); err != nil {
			appLogger.Error("Heartbeat write failed", zap.Error(err))
			metrics.HeartbeatErrors.Inc()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
