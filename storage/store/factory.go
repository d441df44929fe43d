package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
)

// New returns the store selected by cfg.DSN
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.SugaredLogger) (Store, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("Using the in-memory anchor store; anchor attempts are lost on restart")
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, cfg, logger)
}
