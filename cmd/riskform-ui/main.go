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

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/oncorisk/pkg/bootstrap"
	"github.com/synaptica-ai/oncorisk/pkg/common/config"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/gateway/middleware"
	"github.com/synaptica-ai/oncorisk/pkg/gateway/routes"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger.Init()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg, "riskform-ui")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	registry, err := services.NewRegistry()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to create session registry")
	}
	defer registry.Close()

	// Setup router
	router := mux.NewRouter()

	// Middleware
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	routes.NewMetricsHandler(registry).Register(router)

	// API routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	routes.NewAssessmentHandler(registry, services.Catalog).Register(apiRouter)
	if services.History != nil {
		routes.NewHistoryHandler(services.History).Register(apiRouter)
	}

	routes.NewUIHandler(registry, services.Catalog).Register(router)

	// Server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.WithFields(map[string]interface{}{
			"host":      cfg.ServerHost,
			"port":      cfg.ServerPort,
			"predictor": cfg.PredictorBaseURL,
		}).Info("Risk form UI started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down risk form UI...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("Server stopped with error")
		registry.Close()
		services.Close()
		os.Exit(1)
	}

	logger.Log.Info("Risk form UI stopped")
}
