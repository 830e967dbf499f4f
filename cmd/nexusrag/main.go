package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/config"
	"github.com/nexusplanner/nexusrag/internal/db"
	dbRedis "github.com/nexusplanner/nexusrag/internal/db/redis"
	"github.com/nexusplanner/nexusrag/internal/domain"
	logpkg "github.com/nexusplanner/nexusrag/internal/logger"
	"github.com/nexusplanner/nexusrag/internal/metrics"
	budgetrepo "github.com/nexusplanner/nexusrag/internal/repository/budget"
	crmrepo "github.com/nexusplanner/nexusrag/internal/repository/crm"
	documentrepo "github.com/nexusplanner/nexusrag/internal/repository/document"
	"github.com/nexusplanner/nexusrag/internal/repository/embcache"
	chiTransport "github.com/nexusplanner/nexusrag/internal/transport/chi"
	openaiEmb "github.com/nexusplanner/nexusrag/internal/transport/openai"
	documentuc "github.com/nexusplanner/nexusrag/internal/usecase/document"
	embeddinguc "github.com/nexusplanner/nexusrag/internal/usecase/embedding"
	healthuc "github.com/nexusplanner/nexusrag/internal/usecase/health"
	planninguc "github.com/nexusplanner/nexusrag/internal/usecase/planning"
	relevanceuc "github.com/nexusplanner/nexusrag/internal/usecase/relevance"
	searchuc "github.com/nexusplanner/nexusrag/internal/usecase/search"
	usageuc "github.com/nexusplanner/nexusrag/internal/usecase/usage"
	"github.com/nexusplanner/nexusrag/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nexusrag API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("db_enabled", cfg.Database.Enabled()),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// The key-value store is optional: without it there is no embedding cache
	// and budget counters live in memory only.
	var store db.Store
	if cfg.Database.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		store = s
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	vecName, vecCfg, _ := cfg.Embedding.ActiveVectorizer()
	provName := vecCfg.Provider
	provCfg := cfg.Embedding.Providers[provName]

	dims := vecCfg.Dimensions
	if dims == 0 {
		dims = cfg.Retrieval.Dimensions
	}
	if dims == 0 {
		dims = domain.DefaultVectorConfig().Dimensions
	}
	model := vecCfg.Model
	if model == "" {
		model = domain.DefaultVectorConfig().Model
	}

	budget := buildBudget(ctx, provName, provCfg.Budget, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetHealth healthuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetHealth = budget
		budgetReader = budget
	}

	primary := buildProvider(
		provName, provCfg, vecCfg, model, dims,
		store, time.Duration(cfg.Database.CacheTTLHours)*time.Hour,
		budgetChecker, logger,
	)
	fallback := embeddinguc.NewFallbackEmbedder(primary, embeddinguc.NewHashEmbedder(dims), logger)
	docEmbedder := withInstruction(fallback, vecCfg.DocumentInstruction)
	queryEmbedder := withInstruction(fallback, vecCfg.QueryInstruction)
	logger.Info("Embedders created",
		zap.String("vectorizer", vecName),
		zap.String("provider", provName),
		zap.String("model", model),
		zap.Int("dimensions", dims),
		zap.Bool("provider_configured", fallback.Configured()),
	)

	customers, err := crmrepo.LoadFile(cfg.CRM.SeedFile, time.Now())
	if err != nil {
		logger.Fatal("Failed to load CRM customers", zap.Error(err), zap.String("seed_file", cfg.CRM.SeedFile))
	}
	crm := crmrepo.New(customers)
	docRepo := documentrepo.New(cfg.Retrieval.Dimensions)

	docSvc := documentuc.New(docRepo, docEmbedder, model, dims).
		WithMaxBatchSize(cfg.Retrieval.MaxBatchSize)
	searchSvc := searchuc.New(docRepo, queryEmbedder)
	relevanceSvc := relevanceuc.New(crm, docSvc, searchSvc, logger)
	planner := planninguc.New(relevanceSvc, logger)

	var dbPinger healthuc.DBPinger
	if store != nil {
		dbPinger = store
	}
	healthSvc := healthuc.New(dbPinger, fallback, budgetHealth)

	if *cfg.CRM.IndexOnStart {
		indexCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.CRM.IndexTimeoutS)*time.Second)
		report, err := relevanceSvc.Index(indexCtx)
		cancel()
		if err != nil {
			logger.Error("Initial CRM indexing failed", zap.Error(err))
		} else {
			logger.Info("CRM indexed",
				zap.Int("indexed", report.Indexed),
				zap.Int("degraded", report.Degraded),
				zap.Int("failed", report.Failed),
			)
		}
	}

	server := chiTransport.NewServer(docSvc, searchSvc, relevanceSvc, planner, healthSvc, logger).
		WithLimits(chiTransport.Limits{
			DefaultTopK: cfg.Retrieval.DefaultTopK,
			MaxTopK:     cfg.Retrieval.MaxTopK,
		}).
		WithUsage(usageuc.New(budgetReader, provName))
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAgeSec,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildBudget returns nil when no limit is configured.
func buildBudget(
	ctx context.Context,
	provName string,
	bc config.BudgetConfig,
	store db.Store,
	logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	if bc.DailyTokenLimit <= 0 && bc.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if bc.Action == "reject" {
		action = embeddinguc.BudgetActionReject
	}
	budget := embeddinguc.NewBudgetTracker(provName, bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, logger)
	if store != nil {
		budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyRetention, budgetrepo.DefaultMonthlyRetention))
	}
	return budget
}

// buildProvider assembles OpenAI -> Cached -> Budgeted. It returns nil
// when the provider has no API key, leaving the fallback as the only embedder.
func buildProvider(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	model string,
	dims int,
	store db.Store,
	cacheTTL time.Duration,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	base, err := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      model,
		Dimensions: vecCfg.Dimensions,
		User:       "nexusrag",
		Provider:   provName,
		Timeout:    time.Duration(provCfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("Embedding provider not configured, serving fallback embeddings",
			zap.String("provider", provName), zap.Error(err))
		return nil
	}

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger,
			embcache.WithModel(fmt.Sprintf("%s:%d", model, dims)),
			embcache.WithTTL(cacheTTL),
		)
	}

	return embeddinguc.NewBudgetedEmbedder(embedder, provName, model, budget, logger)
}

// withInstruction prefixes texts with an instruction, outermost so the cache key includes it.
func withInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}
