package cmd

import (
	"fmt"
	"log"

	"event-seating/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "event-seating",
	Short: "Real-time seat hold and broadcast engine",
	Long: `event-seating arbitrates temporary seat holds between concurrent
sessions, converts holds into sales, expires stale holds and pushes every
change to connected clients over WebSocket or SockJS.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to an env file (missing files are ignored)")
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*utils.Config, *zap.Logger, error) {
	config, err := utils.LoadConfig(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production logger.", err)
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}
	}

	return config, logger, nil
}
