package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/NadaMuhamed/AI-chatbot/internal/artifact"
	"github.com/NadaMuhamed/AI-chatbot/internal/config"
	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
	"github.com/NadaMuhamed/AI-chatbot/internal/engine"
	"github.com/NadaMuhamed/AI-chatbot/internal/httpapi"
	"github.com/NadaMuhamed/AI-chatbot/internal/observability"
	"github.com/NadaMuhamed/AI-chatbot/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := conversation.NewStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("conversation store init failed: %v", err)
	}
	defer store.Close()

	artifacts, err := artifact.NewStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("artifact store init failed: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	loader := engine.StartLoader(runCtx, engine.LoaderConfig{
		Provider:           cfg.EngineProvider,
		RecognizerProvider: cfg.RecognizerProvider,
		DialogURL:          cfg.DialogURL,
		RecognizerURL:      cfg.RecognizerURL,
		SynthesizerWSURL:   cfg.SynthesizerWSURL,
		WarmupDelay:        cfg.EngineWarmupDelay,
	})

	reaper := artifact.NewReaper(artifacts, cfg.AudioRetention, cfg.SweepInterval, cfg.SweepErrorBackoff)
	reaper.SetSweepHook(func(removed int, _ error) {
		metrics.ArtifactsSwept.Add(float64(removed))
	})
	reaper.Start(runCtx)

	coordinator := pipeline.New(loader, store, artifacts, cfg.AudioDir, metrics)

	api := httpapi.New(cfg, store, artifacts, coordinator, loader, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
