package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/waghmarepb/consolidate/internal/config"
	"github.com/waghmarepb/consolidate/internal/ingest"
	"github.com/waghmarepb/consolidate/internal/logging"
	"github.com/waghmarepb/consolidate/internal/queue"
	"github.com/waghmarepb/consolidate/internal/slotstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// withManager opens the slot store, loads the persisted queue, and hands a
// fully wired manager to fn. The manager and store are closed afterwards.
func (c *commandContext) withManager(fn func(*queue.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger()
	if err != nil {
		return err
	}

	store, err := slotstore.Open(cfg.QueueDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	client := ingest.NewClient(cfg.Ingest.BaseURL,
		time.Duration(cfg.Ingest.RequestTimeout)*time.Second, logger)

	manager := queue.NewManager(slotstore.NewSlot(store, queue.SlotName), client, logger)
	defer manager.Close()

	if err := manager.Load(context.Background()); err != nil {
		return err
	}
	return fn(manager)
}

func (c *commandContext) newIngestClient() (*ingest.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger()
	if err != nil {
		return nil, err
	}
	return ingest.NewClient(cfg.Ingest.BaseURL,
		time.Duration(cfg.Ingest.RequestTimeout)*time.Second, logger), nil
}
