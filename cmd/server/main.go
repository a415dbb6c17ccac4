package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/invoice-desk/internal/config"
	"github.com/garyjia/invoice-desk/internal/container"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	httpapi "github.com/garyjia/invoice-desk/internal/interfaces/http"
	"github.com/garyjia/invoice-desk/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file (see configs/config.example.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting invoice desk",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("messaging", cfg.Messaging.Enabled),
		zap.Bool("scheduler", cfg.Scheduler.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	grants := make([]httpapi.TokenGrant, 0, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		grants = append(grants, httpapi.TokenGrant{
			Token:    t.Token,
			UserName: t.UserName,
			Role:     entity.Role(t.Role),
		})
	}

	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		},
		c.InvoiceService(),
		httpapi.NewAuthenticator(grants),
		c.HealthCheck,
		container.NewLoggerAdapter(logger.Named("http")),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	err = g.Wait()
	logger.Info("Shutting down")
	return err
}
