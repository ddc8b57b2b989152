package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"convoassist/internal/auth"
	"convoassist/internal/capabilities"
	"convoassist/internal/config"
	"convoassist/internal/convo"
	"convoassist/internal/entityres"
	"convoassist/internal/executors"
	"convoassist/internal/hitl"
	"convoassist/internal/httpserver"
	"convoassist/internal/llmgateway"
	"convoassist/internal/orchestrator"
	"convoassist/internal/planner"
	"convoassist/internal/resolvers"
	"convoassist/internal/retry"
	"convoassist/internal/telegram"
	"convoassist/internal/transport"

	"github.com/redis/go-redis/v9"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)
	gateway := llmgateway.New(llmgateway.Config{
		APIKey:       cfg.OpenRouter.APIKey,
		BaseURL:      cfg.OpenRouter.BaseURL,
		DefaultModel: cfg.OpenRouter.DefaultModel,
	}, httpClient, retry.DefaultPolicy(), logger)

	var store auth.Store
	store = auth.NewMemoryStore()
	if path := os.Getenv("AUTH_STORE_PATH"); path != "" {
		fileStore, err := auth.NewFileStore(path)
		if err != nil {
			log.Fatalf("failed to init file store: %v", err)
		}
		store = fileStore
	}
	authService := auth.NewService(cfg.AdminPassword, cfg.SessionTTL, store)

	var capStore capabilities.Store
	capStore = capabilities.NewMemoryStore()
	if path := os.Getenv("CAPABILITIES_STORE_PATH"); path != "" {
		fileStore, err := capabilities.NewFileStore(path)
		if err != nil {
			log.Fatalf("failed to init capabilities store: %v", err)
		}
		capStore = fileStore
	}
	capabilitiesService := capabilities.NewService(capStore)

	orc := buildOrchestrator(cfg, gateway, logger)

	telegramClient := telegram.NewClient(cfg.Telegram, httpClient)
	webhookHandler := telegram.NewWebhookHandler(telegram.WebhookDeps{
		Auth:          authService,
		Pipeline:      orc,
		Capabilities:  capabilitiesService,
		Bot:           telegramClient,
		Logger:        logger,
		AdminPassword: cfg.AdminPassword,
		SessionTTL:    cfg.SessionTTL,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:          logger,
		TelegramHandler: webhookHandler,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// buildOrchestrator wires every pipeline stage named in the request-
// processing contract: the LLM-driven Planner and per-capability
// Resolvers, the deterministic per-domain EntityResolvers, the HITL
// gate, and a checkpoint store selected per config.Pipeline.CheckpointBackend.
func buildOrchestrator(cfg config.Config, gateway llmgateway.Gateway, logger *slog.Logger) *orchestrator.Orchestrator {
	p := cfg.Pipeline

	plan := planner.New(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens)

	resolverRegistry := resolvers.NewRegistry(
		resolvers.NewCalendar(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens),
		resolvers.NewTaskStore(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens, p.TaskCompleteMeansDelete),
		resolvers.NewEmail(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens),
		resolvers.NewMemory(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens),
		resolvers.NewGeneral(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens),
		resolvers.NewMeta(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens),
	)

	calendarExecutor := executors.NewMemoryCalendarExecutor()
	taskExecutor := executors.NewMemoryTaskStoreExecutor()
	emailExecutor := executors.NewMemoryEmailExecutor()
	memoryExecutor := executors.NewMemoryMemoryExecutor()

	entityRegistry := entityres.NewRegistry(
		entityres.NewCalendar(calendarExecutor, p.FuzzyMatchMin, p.DisambiguationGap),
		entityres.NewTaskStore(taskExecutor, p.FuzzyMatchMin, p.DisambiguationGap),
		entityres.NewEmail(emailExecutor, p.FuzzyMatchMin, p.DisambiguationGap),
		entityres.NewMemory(memoryExecutor, p.FuzzyMatchMin, p.DisambiguationGap),
	)

	gate := hitl.New(gateway, p.PlannerModel, p.PlannerTemperature, p.PlannerMaxTokens)

	memory := convo.New(convo.Limits{
		MaxContextMsgs:    p.MaxContextMsgs,
		MaxTotalTokens:    p.MaxTotalTokens,
		MaxSystemMsgs:     p.MaxSystemMsgs,
		CharsPerToken:     p.CharsPerToken,
		ConversationTTL:   p.ConversationTTL,
		DisambiguationTTL: p.DisambiguationTTL,
	})

	checkpoint := buildCheckpointStore(cfg, logger)

	return orchestrator.New(orchestrator.Deps{
		Memory:    memory,
		Planner:   plan,
		Resolvers: resolverRegistry,
		EntityRes: entityRegistry,
		HITL:      gate,
		Checkpoint: checkpoint,
		Executors: orchestrator.ExecutorSet{
			Calendar:  calendarExecutor,
			TaskStore: taskExecutor,
			Email:     emailExecutor,
			Memory:    memoryExecutor,
		},
		Location:            time.UTC,
		ConfidenceThreshold: p.ConfidenceThreshold,
		InterruptTimeout:    p.InterruptTimeout,
		CheckpointTTL:       p.CheckpointTTL,
	})
}

func buildCheckpointStore(cfg config.Config, logger *slog.Logger) orchestrator.CheckpointStore {
	if strings.ToLower(cfg.Pipeline.CheckpointBackend) != "redis" {
		return orchestrator.NewMemoryCheckpointStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis checkpoint store", slog.String("addr", cfg.Redis.Addr))
	return orchestrator.NewRedisCheckpointStore(client)
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
