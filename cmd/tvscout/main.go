package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tvscout/internal/cli"
	"tvscout/internal/config"
	"tvscout/internal/container"
	"tvscout/internal/handlers"
	"tvscout/internal/logger"
)

func main() {
	envErr := godotenv.Load(".env.local")
	if err := godotenv.Load(".env"); err == nil {
		envErr = nil
	}

	cfg := config.Load()
	logger.Configure(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	log := logger.Get()
	if envErr != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize")
	}
	defer c.Close()

	serve := func(ctx context.Context) error {
		return runServer(ctx, c)
	}

	commands := cli.NewHandler(c.Catalog, c.Recent, log, os.Stdout, serve)
	if err := commands.Run(ctx, os.Args[1:]); err != nil {
		c.Close()
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runServer(ctx context.Context, c *container.Container) error {
	log := c.Logger

	stopWatch, err := c.Recent.Watch(ctx)
	if err != nil {
		log.WithError(err).Warn("Change feed unavailable, live updates disabled")
	} else {
		defer stopWatch()
	}

	srv := &http.Server{
		Addr:              ":" + c.Config.Port,
		Handler:           handlers.NewRouter(handlers.New(c.Catalog, c.Recent, log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %s", c.Config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.WithError(err).Error("Server failed")
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
