package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/closeio/authalligator/internal/infrastructure/cache"
	"github.com/closeio/authalligator/internal/infrastructure/database"
	"github.com/closeio/authalligator/internal/interfaces/cli/cliutil"
	httpRouter "github.com/closeio/authalligator/internal/interfaces/http"
	"github.com/closeio/authalligator/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account-link HTTP server",
		Long: `Start the HTTP server that links provider accounts through AuthAlligator,
stores the resulting account keys and hands out access tokens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.host and server.port)")

	return cmd
}

func run(cmd *cobra.Command, addr string) error {
	cfg, err := cliutil.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.GetAddr()
	}

	log := logger.NewLogger()
	log.Infow("starting server", "mode", cfg.Server.Mode, "service_url", cfg.AuthAlligator.ServiceURL)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		log.Debugw("route registered", "method", httpMethod, "path", absolutePath)
	}

	client, err := cliutil.NewClient(cfg)
	if err != nil {
		return err
	}

	db, err := database.Open(&cfg.Database, log.With("component", "database"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	closeDB := func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
	}
	rdb, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		closeDB()
		return err
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	container, err := httpRouter.NewContainer(cfg, db, rdb, client, log)
	if err != nil {
		rdb.Close()
		closeDB()
		return fmt.Errorf("failed to build server: %w", err)
	}
	defer container.Shutdown()

	srv := &http.Server{
		Addr:         addr,
		Handler:      container.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Infow("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}
