package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	core "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/core"
	grpchandler "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/grpc"
	httphandler "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/http"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/app"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/logging"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/producer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

const (
	defaultGatewayConfigPath = "./config/gateway.defaults.yml"
	readinessInterval        = 10 * time.Second
	shutdownTimeout          = 15 * time.Second
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "gateway",
	Short:        "Anchor gateway: accepts anchor requests and serves verification views",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGatewayConfig(configPath)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Monitoring.LogLevel, cfg.Monitoring.LogFormat)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return run(cfg, logger.With("service", "anchor-gateway"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultGatewayConfigPath, "Path to the gateway configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("failed to run gateway: %v", err)
	}
}

func run(cfg *config.GatewayConfig, logger *zap.SugaredLogger) error {
	logger.Info("Starting Anchor Gateway...")
	cfg.Database.LogConfiguration(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anchorStore, err := store.New(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer anchorStore.Close()

	var anchorProducer producer.Producer
	if len(cfg.KafkaProducer.Brokers) == 0 {
		logger.Warn("No Kafka brokers configured, anchor requests stay in process")
		anchorProducer = producer.NewMemoryProducer(logger)
	} else {
		anchorProducer, err = producer.NewKafkaProducer(cfg.KafkaProducer, logger)
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := anchorProducer.Close(); err != nil {
			logger.Warnf("Producer close failed: %v", err)
		}
	}()

	var cache *verification.HistoryCache
	if cfg.VerificationCache.Enabled {
		cache = verification.NewHistoryCache(cfg.VerificationCache.Expiration, cfg.VerificationCache.Cleanup)
	}
	verifier, _, cleanup, err := app.VerificationService(ctx, cfg.BlockchainClientConfigPath, cache, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	service := core.NewService(anchorStore, anchorProducer, verifier, logger,
		cfg.BatchProcessor.BatchSize, cfg.BatchProcessor.BatchTimeout, cfg.BatchProcessor.FlushChannelBuffer)
	// Flushes buffered requests before the producer and store close
	defer service.Close()

	var wg sync.WaitGroup

	var httpServer *http.Server
	if cfg.HttpListenAddr != "" {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())

		metricsPath := ""
		if cfg.Monitoring.EnableMetrics {
			metricsPath = cfg.Monitoring.MetricsPath
		}
		httphandler.NewAnchorHandler(service, logger).Register(e, cfg.Monitoring.HealthCheckPath, metricsPath)

		httpServer = &http.Server{
			Addr:           cfg.HttpListenAddr,
			Handler:        e,
			ReadTimeout:    cfg.HttpServer.ReadTimeout,
			WriteTimeout:   cfg.HttpServer.WriteTimeout,
			IdleTimeout:    cfg.HttpServer.IdleTimeout,
			MaxHeaderBytes: cfg.HttpServer.MaxHeaderBytes,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Infof("HTTP server listening on %s", cfg.HttpListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("HTTP server failed: %v", err)
				cancel()
			}
		}()
	} else {
		logger.Info("http_listen_addr not configured, skipping HTTP server startup.")
	}

	var grpcServer *grpchandler.Server
	if cfg.GrpcListenAddr != "" {
		lis, err := net.Listen("tcp", cfg.GrpcListenAddr)
		if err != nil {
			return err
		}
		grpcServer = grpchandler.NewServer(service, readinessInterval, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Infof("gRPC health server listening on %s", cfg.GrpcListenAddr)
			if err := grpcServer.Serve(ctx, lis); err != nil {
				logger.Errorf("gRPC server failed: %v", err)
				cancel()
			}
		}()
	} else {
		logger.Info("grpc_listen_addr not configured, skipping gRPC server startup.")
	}

	select {
	case sig := <-app.Signals():
		logger.Infof("Received %s, shutting down...", sig)
	case <-ctx.Done():
		logger.Warn("A server stopped unexpectedly, shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("HTTP server shutdown failed: %v", err)
		}
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	wg.Wait()

	logger.Info("Anchor Gateway shut down.")
	return nil
}
