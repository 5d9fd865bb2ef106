package cmd

import (
	"context"
	"fmt"

	"event-seating/internal/data/repository"
	"event-seating/pkg/database"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

// openStore builds the ledger selected by STORE_DRIVER. The returned close
// function releases the database pool, if any.
func openStore(ctx context.Context, config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	switch config.App.StoreDriver {
	case utils.StoreDriverMemory:
		seats := repository.GenerateSeatMap(config.Seed.Sections, config.Seed.Rows, config.Seed.Cols)
		logger.Info("Using in-memory seat ledger",
			zap.Int("seats", len(seats)),
			zap.Strings("sections", config.Seed.Sections),
		)
		return repository.NewMemoryRepository(seats, logger), func() {}, nil

	case utils.StoreDriverPostgres, "":
		db, err := database.InitDB(ctx, config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info("Database connected successfully",
			zap.String("host", config.Database.Host),
			zap.String("database", config.Database.Name),
		)

		if config.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("Database schema applied")
		}

		return repository.NewRepository(db, logger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", config.App.StoreDriver)
	}
}
