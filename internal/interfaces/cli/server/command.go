// Package server implements the command that runs the dashboard HTTP server.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tasmofleet/internal/infrastructure/config"
	"tasmofleet/internal/infrastructure/history"
	httpRouter "tasmofleet/internal/interfaces/http"
	"tasmofleet/internal/shared/buildinfo"
	"tasmofleet/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the fleet dashboard HTTP server with the configured device list.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "release", "Gin mode (debug, test, release)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server",
		"version", buildinfo.Version,
		"devices_file", cfg.Updater.DevicesFile)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	var historyStore *history.Store
	if cfg.History.Enabled {
		historyStore, err = history.Open(cfg.History.Path, logger.NewLogger())
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer func() {
			if err := historyStore.Close(); err != nil {
				logger.Error("failed to close history store", "error", err)
			}
		}()
	}

	router := httpRouter.NewRouter(cfg, historyStore, logger.NewLogger())
	router.SetupRoutes()

	srv := &http.Server{
		Addr:    cfg.Server.GetAddr(),
		Handler: router.GetEngine(),
		// Update runs hold the connection open while devices reboot, so the
		// write timeout must exceed the longest recovery window.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}
