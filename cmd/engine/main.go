package main

import (
	"context"
	"log"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/app"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/logging"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/consumer"
	worker "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/processing"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
)

const defaultEngineConfigPath = "./config/engine.defaults.yml"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "engine",
	Short:        "Anchor engine: consumes anchor requests and writes them to the ledger",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEngine(configPath)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return runEngine(cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultEngineConfigPath, "Path to the engine configuration file")
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("failed to run engine: %v", err)
	}
}

func loadEngine(path string) (*config.EngineConfig, *zap.SugaredLogger, error) {
	cfg, err := config.LoadEngineConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Monitoring.LogLevel, cfg.Monitoring.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.With("service", "anchor-engine"), nil
}

func runEngine(cfg *config.EngineConfig, logger *zap.SugaredLogger) error {
	logger.Info("Starting Anchor Engine...")
	cfg.Database.LogConfiguration(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anchorStore, err := store.New(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer anchorStore.Close()

	verifier, _, cleanup, err := app.VerificationService(ctx, cfg.BlockchainClientConfigPath, nil, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	app.ServeMetrics(ctx, cfg.Monitoring, logger)

	var consumers []consumer.Consumer
	if cfg.KafkaConsumer.UsesMock() {
		logger.Info("Initializing mock message queue consumer...")
		consumers = append(consumers, consumer.NewMockConsumer(logger))
	} else {
		logger.Infof("Initializing %d Kafka consumers...", cfg.KafkaConsumer.Count)
		for i := 0; i < cfg.KafkaConsumer.Count; i++ {
			kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.KafkaConsumer, logger)
			if err != nil {
				return err
			}
			consumers = append(consumers, kafkaConsumer)
		}
	}
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warnf("Consumer close failed: %v", err)
			}
		}
	}()

	var wg sync.WaitGroup
	for i, c := range consumers {
		w := worker.New(cfg.Worker, cfg.MaxTaskRetries, logger.With("worker", i+1), anchorStore, c, verifier)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
		if i == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.SweepRetries(ctx)
			}()
		}
	}
	logger.Infof("Anchor Engine started with %d workers", len(consumers))

	sig := app.WaitForSignal()
	logger.Infof("Received %s, shutting down...", sig)
	cancel()
	wg.Wait()

	logger.Info("Anchor Engine shut down gracefully.")
	return nil
}
