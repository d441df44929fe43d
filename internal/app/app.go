package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	blockchain "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/client/memory"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

// Ledger builds the ledger client from its configuration file and connects
// eagerly. A failed connection is only logged; the client retries on first use.
// For the in-process ledger, blocks are mined until ctx ends.
func Ledger(ctx context.Context, path string, logger *zap.SugaredLogger) (*blockchain.LedgerClient, error) {
	client, ledger, err := blockchain.NewLedgerClientFromFile(path, logger)
	if err != nil {
		return nil, err
	}

	if ledger != nil {
		if memCfg, ok := client.ChainSpecific().(*memory.MemoryConfig); ok && memCfg.AutoMineInterval() > 0 {
			logger.Infof("Mining in-process ledger every %s", memCfg.AutoMineInterval())
			go ledger.AutoMine(ctx, memCfg.AutoMineInterval())
		}
	}

	if _, err := client.Ensure(ctx); err != nil {
		logger.Warnf("Ledger not reachable at startup, will retry on first use: %v", err)
	}
	return client, nil
}

// VerificationService wires the ledger client into the verification service
func VerificationService(ctx context.Context, path string, cache *verification.HistoryCache, logger *zap.SugaredLogger) (*verification.Service, *blockchain.LedgerClient, func(), error) {
	client, err := Ledger(ctx, path, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	stats, err := verification.NewStats()
	if err != nil {
		_ = client.Shutdown()
		return nil, nil, nil, err
	}

	opts := []func(*verification.Service){verification.WithStats(stats)}
	if cache != nil {
		opts = append(opts, verification.WithCache(cache))
	}
	svc := verification.NewService(client, client.Methods(), logger, opts...)

	cleanup := func() {
		stats.UnregisterStats()
		if err := client.Shutdown(); err != nil {
			logger.Warnf("Ledger shutdown failed: %v", err)
		}
	}
	return svc, client, cleanup, nil
}

// ServeMetrics exposes the prometheus registry on its own listener until ctx ends.
// It is used by processes that have no HTTP server of their own.
func ServeMetrics(ctx context.Context, cfg config.MonitoringConfig, logger *zap.SugaredLogger) {
	if !cfg.EnableMetrics || cfg.MetricsAddr == "" {
		return
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))

	go func() {
		logger.Infof("Metrics listening on %s%s", cfg.MetricsAddr, cfg.MetricsPath)
		if err := e.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = e.Close()
	}()
}

// Signals delivers SIGINT and SIGTERM
func Signals() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// WaitForSignal blocks until SIGINT or SIGTERM
func WaitForSignal() os.Signal {
	return <-Signals()
}
