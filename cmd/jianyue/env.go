package main

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/api"
	"github.com/justyntemme/jianyue/internal/config"
	"github.com/justyntemme/jianyue/internal/position"
	"github.com/justyntemme/jianyue/internal/storage"
)

// env holds everything a command needs. Close releases it.
type env struct {
	cfg       *config.Config
	log       *zap.Logger
	client    *api.Client
	kv        storage.Storage
	positions *position.Store

	closeLog func() error
}

func openEnv(cfgFile string) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := cfg.Logging.Prepare()
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	log.Debug("configuration loaded",
		zap.String("file", cfg.File()),
		zap.String("library", cfg.Library),
		zap.String("storage", cfg.Storage.Driver))

	kv, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("storage: %w", err), closeLog())
	}

	return &env{
		cfg:       cfg,
		log:       log,
		client:    api.NewClient(cfg.Library, log.Named("catalog")),
		kv:        kv,
		positions: position.NewStore(kv),
		closeLog:  closeLog,
	}, nil
}

// Close closes the store and the log file
func (e *env) Close() error {
	err := e.kv.Close()
	_ = e.log.Sync()
	return multierr.Append(err, e.closeLog())
}
