package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	analysis "github.com/zhouzirui/hcp-logger/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/hcp-logger/backend/internal/config"
	"github.com/zhouzirui/hcp-logger/backend/internal/handler"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/interaction"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/sentiment"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:          "hcp-logger",
		Short:        "HCP interaction logger backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve, &cobra.Command{
		Use:   "migrate",
		Short: "Create the interaction tables and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	})
	return root
}

// setup loads .env and the configuration, and installs the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "err", envErr)
	}
	return cfg, logger, nil
}

func runMigrate(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	s, err := db.Open(ctx, cfg.Database.Profile())
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("schema is up to date", "driver", cfg.Database.Driver)
	return nil
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	s, err := db.Open(ctx, cfg.Database.Profile())
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Info("database ready", "driver", cfg.Database.Driver)

	directory := hcp.NewMemoryStore(hcp.Seed())

	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = newAIService(ctx, cfg.AI, directory, logger)
		if err != nil {
			logger.Warn("continuing without AI functionality, check the ARK_* environment variables", "err", err)
			aiService = nil
		} else {
			logger.Info("AI service initialized", "model", cfg.AI.Model)
		}
	} else {
		logger.Info("Ark credentials not configured, chat endpoints disabled")
	}

	router := handler.NewRouter(handler.Services{
		Directory:    directory,
		Chats:        chat.NewService(),
		AI:           aiService,
		Prompts:      ai.NewPromptBuilder(""),
		Interactions: interaction.NewService(s, logger),
	}, cfg.Server.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HCP interaction logger listening", "addr", cfg.Server.Addr)
	return runServer(ctx, srv)
}

func newAIService(ctx context.Context, cfg config.AIConfig, directory hcp.Store, logger *slog.Logger) (*ai.Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}

	classifier, err := sentiment.NewService(ctx, chatModel, sentiment.Config{Enabled: cfg.SentimentLLMEnabled}, logger)
	if err != nil {
		return nil, err
	}
	if classifier.Enabled() {
		logger.Info("sentiment classifier uses the chat model")
	}

	registry, err := tools.NewDefaultRegistry(ctx, logger, directory, tools.WithSentimentInferrer(sentimentInferrer(classifier)))
	if err != nil {
		return nil, err
	}
	return ai.NewService(ctx, chatModel, registry, ai.WithMaxCycles(cfg.MaxCycles), ai.WithLogger(logger))
}

func sentimentInferrer(classifier *sentiment.Service) tools.SentimentFunc {
	return func(ctx context.Context, text string) (analysis.Decision, error) {
		res, err := classifier.Infer(ctx, text)
		return res.Decision, err
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
