package main

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/config"
	"github.com/converso-ai/converso-engine/pkg/database"
	"github.com/converso-ai/converso-engine/pkg/handlers"
	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/middleware"
	"github.com/converso-ai/converso-engine/pkg/repositories"
	"github.com/converso-ai/converso-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("chat_model", cfg.AI.ChatModel),
		zap.String("embedding_model", cfg.AI.EmbeddingModel))

	// Run migrations over database/sql; pgx serves the runtime pool.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	llmClient, err := llm.NewClient(&llm.Config{
		Endpoint:       cfg.AI.Endpoint,
		ChatModel:      cfg.AI.ChatModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		APIKey:         cfg.AI.APIKey,
		ChatTimeout:    time.Duration(cfg.AI.ChatTimeoutSeconds) * time.Second,
		EmbedTimeout:   time.Duration(cfg.AI.EmbeddingTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Repositories
	agentRepo := repositories.NewAgentRepository()
	entryRepo := repositories.NewTrainingEntryRepository()
	embeddingRepo := repositories.NewEmbeddingRepository()
	sessionRepo := repositories.NewSessionRepository()

	// Services
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	matcher := services.NewRegexIntentMatcher(
		time.Duration(cfg.SmallTalk.RegexBudgetMs)*time.Millisecond, logger)
	classifier := services.NewIntentClassifier(llmClient, services.IntentClassifierConfig{
		MinConfidence: cfg.SmallTalk.MinLLMConfidence,
		Temperature:   cfg.SmallTalk.Temperature,
		MaxTokens:     cfg.SmallTalk.MaxResponseTokens,
	}, logger)
	generator := services.NewResponseGenerator(llmClient, services.ResponseGeneratorConfig{
		Temperature: cfg.SmallTalk.Temperature,
		MaxTokens:   cfg.SmallTalk.MaxResponseTokens,
	}, rng, logger)
	smallTalk := services.NewSmallTalkService(matcher, classifier, generator, sessionRepo, nil, logger)
	ragSearch := services.NewRagSearchService(llmClient, embeddingRepo, services.RagSearchConfig{
		MaxDistance:       cfg.Rag.MaxDistance,
		StrictMaxDistance: cfg.Rag.StrictMaxDistance,
		MaxResults:        cfg.Rag.MaxResults,
		RewriteMaxWords:   cfg.Rag.RewriteMaxWords,
	}, logger)
	training := services.NewTrainingService(entryRepo, embeddingRepo, llmClient, services.TrainingServiceConfig{
		BatchSize:     cfg.Training.BatchSize,
		MaxConcurrent: cfg.Training.MaxConcurrent,
	}, logger)
	transitions := services.NewTransitionMessageService(llmClient, rng, logger)

	// HTTP surface
	scopeProvider := database.NewWorkspaceScopeProvider(db)
	workspaceMiddleware := handlers.Middleware(middleware.WorkspaceScope(scopeProvider, logger))

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	smallTalkHandler := handlers.NewSmallTalkHandler(smallTalk, agentRepo, logger)
	smallTalkHandler.RegisterRoutes(mux, workspaceMiddleware)

	trainingHandler := handlers.NewTrainingHandler(training, ragSearch, logger)
	trainingHandler.RegisterRoutes(mux, workspaceMiddleware)

	transitionHandler := handlers.NewTransitionHandler(transitions, logger)
	transitionHandler.RegisterRoutes(mux, workspaceMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting converso-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a human-readable development
// logger for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
