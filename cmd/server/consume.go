package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lodging-reservation/internal/config"
	"github.com/iliyamo/lodging-reservation/internal/queue"
)

func newConsumeCmd() *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append reservation lifecycle events to a log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			broker := config.LoadBrokerConfig()
			logger := config.NewLogger(os.Getenv("LOG_LEVEL")).With("component", "consumer")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c := &queue.Consumer{URL: broker.URL, Queue: broker.Queue, LogPath: logPath, Log: logger}
			logger.Info("consuming", "queue", broker.Queue, "log", logPath)
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "logs/reservations.log", "file receiving one line per event")
	return cmd
}
