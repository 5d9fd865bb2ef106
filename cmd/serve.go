package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"event-seating/internal/data/cache"
	"event-seating/internal/queue"
	"event-seating/internal/telemetry"
	"event-seating/internal/wire"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the seat channels and the expiry sweeper",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("store", config.App.StoreDriver),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(config.App.Name, config.Telemetry, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	repo, closeStore, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Error("Failed to open seat store", zap.Error(err))
		return err
	}
	defer closeStore()

	rdb := cache.NewRedisClient(config.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	seatCache := cache.New(rdb, config.Redis.CacheTTL, logger)

	publisher := queue.NewPublisher(config.AMQP, logger)
	defer publisher.Close()

	app := wire.Wiring(repo, seatCache, publisher, config, logger)

	go app.Service.Sweeper.Run(ctx)

	serveErr := APIServer(ctx, app.Router, config.App.Name, config.App.Port, logger)

	hubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Hub.Shutdown(hubCtx); err != nil {
		logger.Warn("Realtime hub did not drain in time", zap.Error(err))
	}

	return serveErr
}
