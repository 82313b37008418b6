package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/emilythestrangee/vitia/backend/internal/config"
	"github.com/emilythestrangee/vitia/backend/internal/database"
	"github.com/emilythestrangee/vitia/backend/internal/logging"
)

type commandContext struct {
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(envFileFlag *string) *commandContext {
	return &commandContext{envFileFlag: envFileFlag}
}

// ensureConfig loads settings and builds the logger once per process.
func (c *commandContext) ensureConfig() (*config.Config, *slog.Logger, error) {
	c.configOnce.Do(func() {
		var path string
		if c.envFileFlag != nil {
			path = strings.TrimSpace(*c.envFileFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: os.Stderr,
		})
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logger)
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.logger, c.configErr
}

// openDatabase connects and migrates.
func (c *commandContext) openDatabase() (database.Service, error) {
	cfg, logger, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	svc, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(svc.GetDB()); err != nil {
		_ = svc.Close()
		return nil, err
	}
	logger.Info("database ready", "driver", cfg.Database.Driver)
	return svc, nil
}
