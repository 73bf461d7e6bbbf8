package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	jwt_service "friday/JWT"
	"friday/config"
	"friday/database"
	"friday/llm"
	"friday/logger"
	"friday/matrix"
	"friday/repository"
	"friday/service"
)

// app holds the shared dependencies every subcommand builds on.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *sql.DB

	matrix *matrix.Client
	llm    *llm.Service
	tokens *jwt_service.Manager

	rooms       *repository.PostgresRoomRepository
	subscribers *repository.PostgresSubscriberRepository
	summaries   *repository.PostgresSummaryRepository
	todos       *repository.PostgresTodoRepository
	settings    *repository.PostgresSettingsRepository
	operators   *repository.PostgresOperatorRepository
}

func newApp(ctx context.Context, serviceName string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Clients below capture logger.Logger, so Init has to run first.
	l := logger.Init(serviceName, cfg.LogLevel)

	db, err := database.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{
		cfg:         cfg,
		log:         l,
		db:          db,
		matrix:      matrix.NewClient(cfg.Matrix.Homeserver, cfg.Matrix.Username, cfg.Matrix.Password),
		tokens:      jwt_service.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		rooms:       repository.NewRoomRepository(db),
		subscribers: repository.NewSubscriberRepository(db),
		summaries:   repository.NewSummaryRepository(db),
		todos:       repository.NewTodoRepository(db),
		settings:    repository.NewSettingsRepository(db),
		operators:   repository.NewOperatorRepository(db),
	}
	completer := llm.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	a.llm = llm.NewService(completer, cfg.Matrix.BotUserID, cfg.OpenAI.Model)
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}

func (a *app) settingsService() *service.SettingsService {
	return service.NewSettingsService(a.settings, a.llm, a.cfg.OpenAI.Model)
}

func (a *app) pipeline() *service.SummaryPipeline {
	return service.NewSummaryPipeline(a.summaries, a.todos, a.subscribers, a.matrix, a.llm)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "friday",
		Short:         "Matrix room monitor with LLM summaries and todos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newSyncRoomsCmd(),
		newMigrateCmd(),
		newCreateOperatorCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Logger.WithError(err).Error("command failed")
		stop()
		os.Exit(1)
	}
}
