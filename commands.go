package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"friday/database"
	"friday/handlers"
	"friday/service"
	"friday/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "friday-api")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireJWT(); err != nil {
				return err
			}
			if err := os.MkdirAll(a.cfg.MediaDir, 0o755); err != nil {
				return fmt.Errorf("create media dir: %w", err)
			}

			llmService := a.llm
			env := &handlers.Env{
				Matrix:       a.matrix,
				Rooms:        a.matrix,
				Admin:        a.matrix,
				BotUserID:    a.cfg.Matrix.BotUserID,
				BridgeDomain: a.cfg.Matrix.BridgeDomain,
				RoomsFor: func(token string) handlers.RoomLister {
					return a.matrix.WithToken(token)
				},
				RoomService: service.NewRoomService(a.rooms, a.matrix, llmService),
				Todos:       service.NewTodoService(a.todos, a.subscribers),
				Subscribers: service.NewSubscriberService(a.subscribers, a.matrix),
				Operators:   service.NewOperatorService(a.operators, a.tokens),
				Dashboard:   service.NewDashboardService(a.todos, a.subscribers, a.summaries),
				Settings:    a.settingsService(),
				LLM:         llmService,
			}
			if _, err := a.settingsService().Model(ctx); err != nil {
				a.log.WithError(err).Warn("could not load llm model setting")
			}

			c := cors.New(cors.Options{
				AllowedOrigins: a.cfg.AllowedOrigins,
				AllowedMethods: []string{
					http.MethodGet, http.MethodPost, http.MethodPut,
					http.MethodPatch, http.MethodDelete, http.MethodOptions,
				},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			})
			srv := &http.Server{
				Addr:              ":" + a.cfg.HTTPPort,
				Handler:           c.Handler(handlers.NewRouter(env, a.tokens)),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      3 * time.Minute, // summaries wait on the LLM
				IdleTimeout:       2 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", srv.Addr).Info("server started")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Answer subscriber commands in their Matrix rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "friday-worker")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireMatrix(); err != nil {
				return err
			}

			w := worker.New(worker.Config{
				BotUserID: a.cfg.Matrix.BotUserID,
				Interval:  a.cfg.WorkerInterval,
				Cooldown:  a.cfg.SummaryCooldown,
			}, worker.Deps{
				Subscribers: a.subscribers,
				Summaries:   a.summaries,
				Todos:       a.todos,
				Matrix:      a.matrix,
				Pipeline:    a.pipeline(),
				Settings:    a.settingsService(),
			})
			return w.Run(ctx)
		},
	}
}

func newSyncRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-rooms",
		Short: "Copy the bot's Matrix rooms into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "friday-sync")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireMatrix(); err != nil {
				return err
			}

			rooms, err := a.matrix.FetchAllRooms(ctx, a.cfg.Matrix.BotUserID)
			if err != nil {
				return fmt.Errorf("fetch rooms: %w", err)
			}
			res, err := service.NewRoomService(a.rooms, a.matrix, a.llm).SyncRooms(ctx, rooms)
			if err != nil {
				return err
			}
			a.log.WithField("synced", res.SyncedCount).
				WithField("new", res.NewRooms).
				WithField("updated", res.UpdatedRooms).
				Info("rooms synced")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "friday-migrate")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := database.Migrate(ctx, a.db); err != nil {
				return err
			}
			a.log.Info("schema is up to date")
			return nil
		},
	}
}

func newCreateOperatorCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-operator",
		Short: "Create a dashboard operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "friday-admin")
			if err != nil {
				return err
			}
			defer a.Close()

			op, err := service.NewOperatorService(a.operators, a.tokens).Create(ctx, username, password)
			if err != nil {
				return fmt.Errorf("create operator: %w", err)
			}
			a.log.WithField("operator_id", op.ID).WithField("username", op.Username).Info("operator created")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "operator username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "operator password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
