package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"docgenie/apps/indexer/features/query"
	"docgenie/apps/indexer/features/source"
	"docgenie/apps/indexer/features/stats"
	"docgenie/apps/indexer/internal/adapter/azsearch"
	"docgenie/apps/indexer/internal/adapter/fetch"
	"docgenie/apps/indexer/internal/adapter/filestore"
	"docgenie/apps/indexer/internal/adapter/openai"
	"docgenie/apps/indexer/internal/config"
	"docgenie/apps/indexer/internal/extract"
	"docgenie/apps/indexer/internal/middleware"
	"docgenie/apps/indexer/internal/pipeline"
	"docgenie/apps/indexer/internal/qa"
	"docgenie/apps/indexer/internal/worker"
)

type App struct {
	Handler       http.Handler
	SourceService *source.Service
	TaskConsumer  *worker.TaskConsumer

	port int
}

// New wires the adapters, features and worker from already-bootstrapped
// dependencies. It does not talk to the search or model services; those are
// only reached when a task runs.
func New(cfg *config.Config, db *sql.DB, taskPub TaskPublisher) (*App, error) {
	// Adapters
	searchClient := azsearch.NewClient(cfg.SearchServiceName, cfg.SearchAdminKey, cfg.SearchAPIVersion)
	modelClient := openai.NewClient(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ModelDeployment, cfg.ModelMaxTokens)
	pageFetcher := fetch.NewFetcher()
	documents := filestore.NewStore(cfg.DocumentDir)
	transcripts := filestore.NewStore(cfg.TranscriptDir)

	extractor := extract.NewHTMLExtractor()
	extractor.ContainerID = cfg.ContentID

	synthesizer := qa.NewSynthesizer(modelClient, cfg.QAMaxRetries, time.Duration(cfg.ThrottleWaitSec)*time.Second)

	pipe := pipeline.New(pageFetcher, documents, transcripts, extractor, synthesizer, searchClient, pipeline.Options{
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
		QAMinPairs:         cfg.QAMinPairs,
		QAMaxPairs:         cfg.QAMaxPairs,
		QAPairMultiple:     cfg.QAPairMultiple,
		SemanticTitleField: cfg.SemanticTitleField,
	})

	// Feature: Source
	sourceRepo := source.NewPostgresRepo(db)
	sourceService := source.NewService(sourceRepo, taskPub, searchClient)
	sourceHandler := source.NewHandler(sourceService, cfg.DocumentDir, cfg.TranscriptDir)

	// Feature: Stats & Query
	statsHandler := stats.NewHandler(sourceRepo, searchClient)
	queryHandler := query.NewHandler(searchClient)

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

	if cfg.EnableAPI {
		mux.Handle("POST /sources", middleware.CorrelationID(enableCORS(sourceHandler.Create)))
		mux.Handle("POST /sources/upload", middleware.CorrelationID(enableCORS(sourceHandler.Upload)))
		mux.Handle("GET /sources", middleware.CorrelationID(enableCORS(sourceHandler.List)))
		mux.Handle("GET /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Get)))
		mux.Handle("DELETE /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Delete)))
		mux.Handle("POST /sources/{id}/resync", middleware.CorrelationID(enableCORS(sourceHandler.ReSync)))

		mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
		mux.Handle("GET /search", middleware.CorrelationID(enableCORS(queryHandler.Search)))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	taskConsumer := worker.NewTaskConsumer(pipe, sourceRepo)

	return &App{
		Handler:       mux,
		SourceService: sourceService,
		TaskConsumer:  taskConsumer,
		port:          cfg.ServerPort,
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
