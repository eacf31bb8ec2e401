package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kestrel-retail/discovery-engine/internal/cache"
	"github.com/kestrel-retail/discovery-engine/internal/catalogjob"
	"github.com/kestrel-retail/discovery-engine/internal/config"
	"github.com/kestrel-retail/discovery-engine/internal/db"
	"github.com/kestrel-retail/discovery-engine/internal/embedding"
	"github.com/kestrel-retail/discovery-engine/internal/handlers"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/middleware"
	"github.com/kestrel-retail/discovery-engine/internal/recommend"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/search"
	"github.com/kestrel-retail/discovery-engine/internal/server"
	"github.com/kestrel-retail/discovery-engine/internal/session"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
	"github.com/kestrel-retail/discovery-engine/internal/weights"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load(log)

	shutdownTracing, err := setupTracing(log)
	if err != nil {
		log.Error("tracing setup failed, continuing without export", "error", err)
	}
	if shutdownTracing != nil {
		defer shutdownTracing(context.Background())
	}

	dbService, err := db.New(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	productRepo := repos.NewProductRepo(gdb, log)
	embeddingRepo := repos.NewEmbeddingRepo(gdb, log)
	sessionRepo := repos.NewSessionRepo(gdb, log)
	interactionRepo := repos.NewInteractionRepo(gdb, log)
	weightsRepo := repos.NewRankingWeightsRepo(gdb, log)
	searchLogRepo := repos.NewSearchLogRepo(gdb, log)
	catalogJobRepo := repos.NewCatalogUploadJobRepo(gdb, log)
	metricRepo := repos.NewEvaluationMetricRepo(gdb, log)

	index, err := vectorindex.New(cfg.Vector, log)
	if err != nil {
		log.Fatal("failed to build vector index", "error", err)
	}

	embedder := embedding.New(cfg.Embed, log)

	weightsCache, err := cache.NewWeightsCache(log, cfg.Redis.Addr, cfg.WeightsCacheTTL)
	if err != nil {
		log.Warn("weights cache unavailable, continuing without it", "error", err)
	}

	weightsSvc := weights.NewService(weightsRepo, weightsCache)
	sessionSvc := session.NewService(sessionRepo, interactionRepo, productRepo)
	recommendSvc := recommend.NewService(productRepo, embeddingRepo, interactionRepo, sessionRepo, index)
	catalogJobSvc := catalogjob.NewService(log, catalogJobRepo, productRepo, embeddingRepo, index, embedder)

	searchSvc := search.NewService(log, sessionSvc, productRepo, embeddingRepo, searchLogRepo, weightsSvc, embedder, index, search.Config{
		CandidateLimit: cfg.CandidateLimit,
		SoftDeadline:   time.Duration(cfg.SearchSoftMs) * time.Millisecond,
		HardDeadline:   time.Duration(cfg.SearchHardMs) * time.Millisecond,
	})

	router := server.NewRouter(server.RouterConfig{
		SessionMiddleware:  middleware.NewSessionMiddleware(log),
		SearchHandler:      handlers.NewSearchHandler(searchSvc),
		RecommendHandler:   handlers.NewRecommendHandler(recommendSvc),
		InteractionHandler: handlers.NewInteractionHandler(sessionSvc),
		AdminHandler:       handlers.NewAdminHandler(weightsSvc, productRepo, metricRepo, searchLogRepo, catalogJobSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("discovery engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server exited unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// setupTracing installs a stdout span exporter as the default TracerProvider
// so the spans search.go emits (embed_query, fetch_candidates,
// persist_search_log) have somewhere to go even without an OTLP collector
// configured. Swapping the exporter for a real backend is a one-line change.
func setupTracing(log *logger.Logger) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "discovery-engine"),
	))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Info("stdout trace exporter installed")
	return tp.Shutdown, nil
}
