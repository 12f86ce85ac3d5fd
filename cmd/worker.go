/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/server"
	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes consultation events and sends notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log)

		if err := checkWorkerBackend(cfg.MQ); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Connect(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect mq: %w", err)
		}
		defer broker.Close()

		kvStore, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open kv store: %w", err)
		}
		defer kvStore.Close()

		notifier := services.NewNotifier(store.NewUserDirectory(kvStore), nil, logger)

		return notifier.Run(ctx, broker)
	},
}

// checkWorkerBackend rejects brokers the worker cannot consume from. A local
// broker only reaches subscribers inside the server process, so with
// MQ_BACKEND=local the server runs the notifier itself.
func checkWorkerBackend(cfg config.MQConfig) error {
	switch cfg.Backend {
	case "":
		return errors.New("MQ_BACKEND is required for the worker")
	case "local":
		return errors.New("MQ_BACKEND=local is served by the server process; the worker needs rabbitmq or pubsub")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
