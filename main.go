package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docgenie/apps/indexer/internal/app"
	"docgenie/apps/indexer/internal/config"
	"docgenie/apps/indexer/internal/logger"
	"docgenie/apps/indexer/internal/worker"

	"github.com/nsqio/go-nsq"
)

func main() {
	logger.Init(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	a, err := app.New(cfg, deps.DB, deps.NSQProducer)
	if err != nil {
		return err
	}

	if cfg.EnableWorker {
		consumer, err := startTaskConsumer(cfg, a.TaskConsumer)
		if err != nil {
			return err
		}
		defer consumer.Stop()
	}

	return a.Run(ctx)
}

func startTaskConsumer(cfg *config.Config, handler *worker.TaskConsumer) (*nsq.Consumer, error) {
	consumerCfg := nsq.NewConfig()
	// One source at a time: index replace-then-fill must not interleave.
	consumerCfg.MaxInFlight = 1

	consumer, err := nsq.NewConsumer(config.TopicIndexTask, config.ChannelIndexer, consumerCfg)
	if err != nil {
		return nil, err
	}
	consumer.AddHandler(handler)

	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, err
	}
	slog.Info("task consumer connected", "topic", config.TopicIndexTask, "channel", config.ChannelIndexer)
	return consumer, nil
}
