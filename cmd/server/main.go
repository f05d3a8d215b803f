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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bluff-backend/internal/config"
	"github.com/DoyleJ11/bluff-backend/internal/httpapi"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/logging"
	"github.com/DoyleJ11/bluff-backend/internal/notify"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/store"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
	"github.com/DoyleJ11/bluff-backend/internal/watchdog"
	"github.com/DoyleJ11/bluff-backend/internal/ws"
)

type options struct {
	envFile string
	addr    string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "bluff-server",
		Short:         "Game server for the bluff card game",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(opts.envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Addr = opts.addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides BLUFF_ADDR")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var (
		directory userdir.Directory = userdir.Guests{}
		accounts  httpapi.Accounts
		worker    *results.Worker
	)
	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Warn("close store", zap.Error(err))
			}
		}()
		directory, accounts = st, st
		worker = results.NewWorker(st, st, 256, log.Named("results"))
	} else {
		log.Warn("BLUFF_DATABASE_URL not set, running with guest users and no persistence")
		worker = results.NewWorker(nil, nil, 256, log.Named("results"))
	}

	users, err := userdir.NewCached(directory, cfg.UserCacheTTL, log)
	if err != nil {
		return err
	}
	defer users.Close()

	reg := ws.NewRegistry(64, log)
	h := hub.NewHub(ctx, hub.Options{
		Notifier: notify.Fanout{reg, notify.Log{Logger: log.Named("events")}},
		Results:  worker,
		Logger:   log,
	})
	defer h.Close()

	dog := watchdog.New(h, watchdog.Config{
		Interval:        cfg.WatchdogInterval,
		MoveTimeout:     cfg.MoveTimeout,
		GameTimeout:     cfg.GameTimeout,
		RoomWaitTimeout: cfg.RoomWaitTimeout,
	}, log)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:      h,
			Users:    users,
			Accounts: accounts,
			WS:       ws.NewHandler(h, reg, users, log),
			Logger:   log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return dog.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
