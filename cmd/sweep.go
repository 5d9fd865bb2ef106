package cmd

import (
	"errors"

	"event-seating/internal/data/cache"
	"event-seating/internal/queue"
	"event-seating/internal/realtime"
	"event-seating/internal/usecase"
	"event-seating/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release expired seat holds once and exit",
	Long: `Sweep returns every hold older than HOLD_TTL to available. The cleanup
event is published to the broker and the seat cache is invalidated, so it is
safe to run from cron next to a live server.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := checkSweepDriver(config.App.StoreDriver); err != nil {
		logger.Error("Refusing to sweep", zap.Error(err))
		return err
	}

	ctx := cmd.Context()

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

	publisher := queue.NewPublisher(config.AMQP, logger)
	defer publisher.Close()

	// No channels live in this process; the hub only satisfies the notifier.
	hub := realtime.NewHub(1, logger)
	service := usecase.NewService(repo, hub, cache.New(rdb, config.Redis.CacheTTL, logger), publisher, config, logger)

	released, err := service.Sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	logger.Info("Sweep finished", zap.Int("released", released))
	cmd.Printf("released %d expired holds\n", released)
	return nil
}

var errSweepMemoryStore = errors.New("sweep requires STORE_DRIVER=postgres: the memory ledger is private to the serving process")

// checkSweepDriver rejects ledgers that live only inside one process.
func checkSweepDriver(driver string) error {
	if driver == utils.StoreDriverMemory {
		return errSweepMemoryStore
	}
	return nil
}
