package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/config"
	"github.com/immarkus/immarkus-engine/pkg/logging"
)

// Open returns the document store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case config.DriverFile:
		logger.Info("Using file document store", zap.String("root", cfg.Path))
		store, err = asStore(NewFileStore(cfg.Path, logger))
	case config.DriverBolt:
		logger.Info("Using bolt document store", zap.String("path", cfg.Path))
		store, err = asStore(NewBoltStore(cfg.Path, logger))
	case config.DriverSQLite:
		logger.Info("Using sqlite document store", zap.String("path", cfg.Path))
		store, err = asStore(NewSQLiteStore(ctx, cfg.Path, logger))
	case config.DriverPostgres:
		logger.Info("Using postgres document store",
			zap.String("database_url", logging.SanitizeConnectionString(cfg.DatabaseURL)))
		store, err = asStore(NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxConnections, logger))
		if err != nil {
			err = errors.New(logging.SanitizeError(err))
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}

// asStore keeps a typed nil pointer from becoming a non-nil Store.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
