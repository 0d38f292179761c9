package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/config"
	"github.com/kailas-cloud/shopassist/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/shopassist/internal/db/redis"
	"github.com/kailas-cloud/shopassist/internal/domain"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	logpkg "github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
	budgetrepo "github.com/kailas-cloud/shopassist/internal/repository/budget"
	cartrepo "github.com/kailas-cloud/shopassist/internal/repository/cart"
	catalogrepo "github.com/kailas-cloud/shopassist/internal/repository/catalog"
	"github.com/kailas-cloud/shopassist/internal/repository/embcache"
	ordersrepo "github.com/kailas-cloud/shopassist/internal/repository/orders"
	preferencerepo "github.com/kailas-cloud/shopassist/internal/repository/preference"
	sessionrepo "github.com/kailas-cloud/shopassist/internal/repository/session"
	"github.com/kailas-cloud/shopassist/internal/repository/vectorstore"
	chiTransport "github.com/kailas-cloud/shopassist/internal/transport/chi"
	kafkaTransport "github.com/kailas-cloud/shopassist/internal/transport/kafka"
	openaiTransport "github.com/kailas-cloud/shopassist/internal/transport/openai"
	"github.com/kailas-cloud/shopassist/internal/usecase/cart"
	"github.com/kailas-cloud/shopassist/internal/usecase/catmatch"
	"github.com/kailas-cloud/shopassist/internal/usecase/conversation"
	"github.com/kailas-cloud/shopassist/internal/usecase/delivery"
	"github.com/kailas-cloud/shopassist/internal/usecase/eligibility"
	embeddinguc "github.com/kailas-cloud/shopassist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shopassist/internal/usecase/health"
	"github.com/kailas-cloud/shopassist/internal/usecase/intent"
	orderuc "github.com/kailas-cloud/shopassist/internal/usecase/order"
	"github.com/kailas-cloud/shopassist/internal/usecase/preference"
	"github.com/kailas-cloud/shopassist/internal/usecase/ranking"
	routeruc "github.com/kailas-cloud/shopassist/internal/usecase/router"
	searchuc "github.com/kailas-cloud/shopassist/internal/usecase/search"
	usageuc "github.com/kailas-cloud/shopassist/internal/usecase/usage"
	"github.com/kailas-cloud/shopassist/internal/usecase/vectorsearch"
	"github.com/kailas-cloud/shopassist/internal/version"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

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

	logger.Info("Starting shopassist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Redis: carts, sessions, embedding cache, usage counters
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:        cfg.Redis.Addrs,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	logger.Info("Connected to redis")

	// Postgres: catalog, similarity RPCs, orders, preferences
	pool, err := postgres.Open(postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to open postgres", zap.Error(err))
	}
	defer func() { _ = pool.Close() }()
	if err := pool.WaitForReady(ctx, time.Duration(cfg.Postgres.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Postgres not ready", zap.Error(err))
	}
	logger.Info("Connected to postgres")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	// Take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	provCfg := cfg.Embedding.Providers[provName]

	// Budget and usage counters share one Redis counter store.
	counters := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		budget.WithStore(ctx, counters)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetGate embeddinguc.Budget
	if budget != nil {
		budgetGate = budget
	}

	embedder := buildEmbedder(provName, provCfg, vecCfg, cfg.Embedding.CacheTTLHours, store, budgetGate, logger)
	logger.Info("Embedder created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	llm := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:    cfg.Chat.APIKey,
		BaseURL:   cfg.Chat.BaseURL,
		Model:     cfg.Chat.Model,
		MaxTokens: cfg.Chat.MaxTokens,
		Provider:  cfg.Chat.Provider,
		Logger:    logger,
	})

	// Repositories
	catalog := catalogrepo.New(pool)
	items := vectorstore.New(pool, pool.Reset)
	orders := ordersrepo.New(pool)
	carts := cartrepo.New(store, time.Duration(cfg.Cart.TTLHours)*time.Hour)
	sessions := sessionrepo.New(store,
		time.Duration(cfg.Conversation.SessionTTLHours)*time.Hour, cfg.Conversation.MaxHistory)

	// Search pipeline
	fees := delivery.New(catalog, fallbackDelivery(cfg.Delivery))
	gateway := vectorsearch.New(items, embedder, vectorsearch.Config{
		DBSimilarityFloor: cfg.Search.DBSimilarityFloor,
		MaxAttempts:       cfg.Search.MaxAttempts,
		LimitMultiplier:   cfg.Search.LimitMultiplier,
	})
	var booster searchuc.Booster
	if cfg.Preferences.Enabled {
		booster = preference.New(preferencerepo.New(pool), embedder, preference.Config{
			TopK:          cfg.Preferences.TopK,
			MinSimilarity: cfg.Preferences.MinSimilarity,
			Factor:        cfg.Preferences.Factor,
		})
	}
	ranker := ranking.New(ranking.Weights{
		ItemCount:         cfg.Ranking.ItemCount,
		Similarity:        cfg.Ranking.Similarity,
		Fee:               cfg.Ranking.Fee,
		CountSaturation:   cfg.Ranking.CountSaturation,
		FeeNormalization:  cfg.Ranking.FeeNormalization,
		FreeDeliveryScore: cfg.Ranking.FreeDeliveryScore,
		ZeroMatchFactor:   cfg.Ranking.ZeroMatchFactor,
	}, cfg.Ranking.ItemsPerShop)
	searchSvc := searchuc.New(
		catalog,
		intent.New(llm, intent.DefaultVocabulary, cfg.Chat.IntentTemperature),
		gateway,
		catmatch.New(catalog),
		booster,
		fees,
		ranker,
	).WithConfig(searchuc.Config{
		MaxQueries:      cfg.Search.MaxQueries,
		MaxItemsPerCall: cfg.Search.MaxItemsPerCall,
	})

	// Carts and orders. Pass a nil interface when publishing is disabled.
	var publisher orderuc.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafkaTransport.NewPublisher(kafkaTransport.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Async:   cfg.Kafka.Async,
		})
		defer func() { _ = kp.Close() }()
		publisher = kp
		logger.Info("Order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	cartSvc := cart.New(carts, catalog)
	orderSvc := orderuc.New(carts, catalog, orders, sessions, eligibility.New(catalog), fees, publisher)

	router := routeruc.New(searchSvc, gateway, cartSvc, orderSvc, sessions)
	convo := conversation.New(llm, router, sessions, routeruc.Tools(), conversation.Config{
		MaxRounds:    cfg.Conversation.MaxRounds,
		SystemPrompt: cfg.Conversation.SystemPrompt,
		Temperature:  cfg.Conversation.Temperature,
	})

	// Usage service reads from the shared BudgetTracker.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader, counters, logger)

	healthSvc := healthuc.New(time.Duration(cfg.HTTP.HealthTimeoutSec)*time.Second,
		healthuc.Store(healthuc.ComponentRedis, store),
		healthuc.Store(healthuc.ComponentPostgres, pool),
		healthuc.Dependency(healthuc.ComponentEmbedding, embeddingChecker(embedder)),
		healthuc.Dependency(healthuc.ComponentLLM, llm),
	)

	server := chiTransport.NewServer(router, convo, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware(routeruc.Names()...))
	chiTransport.Handler(server, chiTransport.ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// embeddingChecker returns the embedder's probe, or nil when it has none.
func embeddingChecker(embedder domain.Embedder) healthuc.Checker {
	if hc, ok := embedder.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}

// buildEmbedder assembles OpenAI -> cache -> metered -> dimension guard.
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	cacheTTLHours int,
	store *dbRedis.Store,
	budget embeddinguc.Budget,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cacheTTLHours > 0 {
		embedder = embcache.New(base, store, embcache.Options{
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			TTL:        time.Duration(cacheTTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewMeteredEmbedder(embedder, provName, vecCfg.Model, budget, logger)

	// Outermost: a wrong-sized vector never reaches a similarity RPC.
	if vecCfg.Dimensions > 0 {
		return domain.NewDimensionGuard(embedder, vecCfg.Dimensions)
	}
	return embedder
}

func fallbackDelivery(c config.DeliveryConfig) domcat.DeliveryLogic {
	tiers := make([]domcat.Tier, len(c.Tiers))
	for i, t := range c.Tiers {
		tiers[i] = domcat.Tier{UpToKm: t.UpToKm, SurchargeCents: t.SurchargeCents}
	}
	return domcat.DeliveryLogic{
		RadiusKm:           c.RadiusKm,
		BaseFeeCents:       c.BaseFeeCents,
		FreeRadiusKm:       c.FreeRadiusKm,
		FreeThresholdCents: c.FreeThresholdCents,
		Tiers:              tiers,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("user_id", r.Header.Get("X-User-ID")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
