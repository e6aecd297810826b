package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/cliparse"
	"github.com/danielhkuo/chantier/db"
	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/router"
	"github.com/danielhkuo/chantier/store"
)

func main() {
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready")

	mainStore := store.NewPostgresStore(dbConn)

	// Agent reads may use a restricted role
	agentStore := mainStore
	if cfg.AgentDatabaseURL != cfg.DatabaseURL {
		agentConn, err := db.Open(ctx, cfg.AgentDatabaseURL)
		if err != nil {
			return err
		}
		defer agentConn.Close()
		agentStore = store.NewPostgresStore(agentConn)
		slog.Info("agent queries use a separate database pool")
	}

	if cfg.SQLLogFile != "" {
		f, err := os.OpenFile(cfg.SQLLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return err
		}
		defer f.Close()
		agentStore = agentStore.WithQueryLog(f)
		slog.Info("agent SQL log enabled", "path", cfg.SQLLogFile)
	}

	pending, err := actions.Open(ctx, cfg.ActionStorePath, cfg.ActionTTL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pending.Close(); closeErr != nil {
			slog.Error("failed to close action store", "error", closeErr)
		}
	}()
	go actions.RunPurge(ctx, pending, time.Minute, func(err error) {
		slog.Error("failed to purge expired actions", "error", err)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := agent.NewMetrics(registry)

	var model agent.ChatModel
	if cfg.AssistantEnabled() {
		model, err = agent.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return err
		}
		slog.Info("assistant enabled", "model", cfg.OpenAIModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, assistant queries will return 503")
	}

	executor := agent.NewExecutor(pending, mainStore, metrics)
	toolbox := agent.NewToolbox(agentStore, pending, metrics)
	limiter := rate.NewLimiter(rate.Limit(cfg.LLMRateLimit), 1)
	assistant := agent.NewAssistant(model, toolbox, executor, pending, limiter, metrics)

	// Create router
	mux := router.NewRouter(router.Deps{
		Store:     mainStore,
		Assistant: assistant,
		Executor:  executor,
		Registry:  registry,
	})

	server := http.Server{
		Handler:           middleware.CORS(cfg.CORSOrigins)(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "cors", cfg.CORSOrigins)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}
