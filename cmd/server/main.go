// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halit-vural/autorag/internal/app"
	"github.com/halit-vural/autorag/internal/auth"
	"github.com/halit-vural/autorag/internal/config"
	"github.com/halit-vural/autorag/internal/handlers"
	"github.com/halit-vural/autorag/internal/logger"
	"github.com/halit-vural/autorag/internal/session"
)

const sessionTTL = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		FilePath:   cfg.App.LogFilePath,
		Debug:      cfg.App.Debug,
		Production: cfg.IsProduction(),
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sessionHandler := handlers.NewSessionHandler(application.Controller, session.NewRegistry(sessionTTL), log.Named("http"))
	accessTokenAuthorizer := auth.NewAccessTokenAuthorizer(cfg.App.AccessToken)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", sessionHandler.Health)

	protected := router.Group("/", accessTokenAuthorizer.Middleware(), auth.SessionCookie())
	sessionHandler.Register(protected)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("AutoRAG server is running", zap.String("addr", server.Addr), zap.Bool("access_token", accessTokenAuthorizer.Enabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
