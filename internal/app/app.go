package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"tickerspark/archive/features/backfill"
	"tickerspark/archive/features/ingest"
	"tickerspark/archive/features/search"
	"tickerspark/archive/internal/adapter/gemini"
	wstore "tickerspark/archive/internal/adapter/weaviate"
	"tickerspark/archive/internal/config"
	"tickerspark/archive/internal/middleware"
	"tickerspark/archive/internal/queue"
	"tickerspark/archive/internal/retrieval"
	"tickerspark/archive/internal/worker"
)

type App struct {
	Handler      http.Handler
	WorkerRunner *worker.Runner
	WakeConsumer *worker.WakeConsumer

	port int
}

func New(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	vecStore := wstore.NewStore(deps.WeaviateClient)
	jobQueue := queue.NewPostgresQueue(deps.DB)

	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder error: %w", err)
	}
	extractor, err := gemini.NewExtractor(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini extractor error: %w", err)
	}

	// Feature: Ingest
	ingestService := ingest.NewService(vecStore, jobQueue, deps.NSQProducer,
		cfg.DefaultOwnerID, cfg.MinChunkSize, cfg.MaxChunkSize, logger)
	ingestHandler := ingest.NewHandler(ingestService)

	// Feature: Backfill
	backfillClient := backfill.NewClient(cfg.ContentfulSpaceID, cfg.ContentfulDeliveryKey, cfg.ContentfulEnvironment)
	backfillService := backfill.NewService(backfillClient, ingestService, logger)
	backfillHandler := backfill.NewHandler(backfillService)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, extractor, vecStore, queryLogger)
	searchHandler := search.NewHandler(retrievalService)

	// Worker
	runner := worker.NewRunner(jobQueue, vecStore, embedder,
		cfg.QueueBatchSize, cfg.QueueVisibilitySeconds, logger)
	wakeConsumer := worker.NewWakeConsumer(runner)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /webhooks/contentful", middleware.CorrelationID(enableCORS(ingestHandler.Webhook)))
	mux.Handle("POST /backfill", middleware.CorrelationID(enableCORS(backfillHandler.Run)))
	mux.Handle("POST /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))

	mux.Handle("POST /worker/run", middleware.CorrelationID(enableCORS(func(w http.ResponseWriter, r *http.Request) {
		report, err := runner.Run(r.Context())
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:      mux,
		WorkerRunner: runner,
		WakeConsumer: wakeConsumer,
		port:         cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
