package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/app"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/reconcile"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
)

var (
	reconcileGrace     time.Duration
	reconcileWindow    time.Duration
	reconcileBatchSize int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare anchored requests against the ledger without writing to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEngine(configPath)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		report, err := reconcile.New(anchorStore, verifier, logger,
			reconcile.WithGrace(reconcileGrace),
			reconcile.WithWindow(reconcileWindow),
			reconcile.WithBatchSize(reconcileBatchSize),
		).Run(ctx)
		if err != nil {
			return err
		}

		for _, issue := range report.Issues {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", issue.Kind, issue.RequestID, issue.SubjectID, issue.TxHash)
		}
		if len(report.Issues) > 0 {
			return fmt.Errorf("%d anchored requests are not confirmed on the ledger", len(report.Issues))
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileGrace, "grace", 5*time.Minute, "Ignore requests anchored more recently than this")
	reconcileCmd.Flags().DurationVar(&reconcileWindow, "window", 24*time.Hour, "How far back before the grace period to check")
	reconcileCmd.Flags().IntVar(&reconcileBatchSize, "batch-size", 500, "Anchored requests read per page")
}
