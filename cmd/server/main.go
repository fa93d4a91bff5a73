package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gookit/color"

	"github.com/oarkflow/usermgr"
	"github.com/oarkflow/usermgr/pkg/cache"
	"github.com/oarkflow/usermgr/pkg/config"
	"github.com/oarkflow/usermgr/pkg/credentials"
	"github.com/oarkflow/usermgr/pkg/libs"
)

func main() {
	if err := run(); err != nil {
		color.Red.Println("usermgr: " + err.Error())
		os.Exit(1)
	}
}

func run() error {
	envFile := os.Getenv("USERMGR_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	kc, err := config.New(envFile, false, nil)
	if err != nil {
		return err
	}
	config.Load(kc)
	cfg, err := libs.LoadConfig(kc)
	if err != nil {
		return err
	}

	logger := libs.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	store, err := cache.Open(cfg.CacheDriver, cfg.RedisURL)
	if err != nil {
		return err
	}
	manager, err := libs.NewManager(cfg, store, credentials.NewFileStore(cfg.CredentialsFile), libs.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return err
	}

	app := fiber.New(cfg.FiberConfig(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
	}))
	app.Use(recover.New())

	plugin := usermgr.NewPluginWithOptions(
		usermgr.WithApp(app),
		usermgr.WithManager(manager),
		usermgr.WithReload(cfg.AppEnv == "development"),
	)
	if err := plugin.Register(); err != nil {
		return err
	}
	defer plugin.Close()

	return serve(app, cfg.ListenAddr, logger)
}

func serve(app *fiber.App, addr string, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
