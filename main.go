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
	"github.com/joho/godotenv"

	"studyquiz-server/config"
	"studyquiz-server/db"
	"studyquiz-server/handlers"
	"studyquiz-server/ingestion"
	"studyquiz-server/logger"
	"studyquiz-server/middleware"
	"studyquiz-server/preferences"
	"studyquiz-server/sessions"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := db.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Unable to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer repo.Close()

	loaded, err := ingestion.LoadBank(cfg.Bank.Path, cfg.Bank.Manifest, cfg.Bank.Strict, log)
	if err != nil {
		log.Fatal("Error loading question bank", "path", cfg.Bank.Path, "error", err)
	}
	if err := repo.ReplaceIssues(ctx, loaded.Issues); err != nil {
		log.Warn("Could not store ingestion issues", "error", err)
	}

	registry := sessions.New(loaded.Store, sessions.Options{
		AutoAdvanceDelay: cfg.Session.AutoAdvanceDelay,
		IdleTTL:          cfg.Session.IdleTTL,
		SweepInterval:    cfg.Session.SweepInterval,
	}, log)
	defer registry.Close()
	go registry.Run(ctx)

	env := &handlers.Env{
		Bank:             loaded.Bank,
		Sessions:         registry,
		Prefs:            preferences.NewService(repo, repo, registry, cfg.IntroScope, log),
		Stats:            repo,
		Issues:           repo,
		Storage:          repo,
		Log:              log,
		AutoAdvanceDelay: cfg.Session.AutoAdvanceDelay,
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.NewIdentity(cfg.Session.Secret, cfg.Session.ViewerTTL, log).Middleware())
	router.HTMLRender = handlers.Renderer()

	// question images are referenced as images/<folder>/<file>
	if info, err := os.Stat(cfg.Bank.Path); err == nil && info.IsDir() {
		router.Static("/images", cfg.Bank.Path)
	}
	handlers.Register(router, env)

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
	}()

	log.Info("Study quiz server starting", "addr", cfg.ServerPort, "questions", loaded.Bank.Total, "storage", cfg.Storage.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server startup error", "error", err)
	}
	log.Info("Server exited gracefully.")
}
