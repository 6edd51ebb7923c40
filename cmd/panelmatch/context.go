package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/database"
	"github.com/jask/panelmatch/internal/logging"
	"github.com/jask/panelmatch/internal/service"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	once    sync.Once
	cfg     config.Config
	mapping config.Mapping
	log     *slog.Logger
	err     error
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, levelFlag: levelFlag}
}

// load reads the config, the column mapping and builds the logger once.
func (c *commandContext) load() error {
	c.once.Do(func() {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			os.Setenv("PANELMATCH_CONFIG", p)
		}
		cfg, err := config.Load()
		if err != nil {
			c.err = err
			return
		}
		if lvl := strings.TrimSpace(*c.levelFlag); lvl != "" {
			cfg.Log.Level = lvl
		}
		log, err := logging.NewFromConfig(os.Stderr, cfg.Log)
		if err != nil {
			c.err = err
			return
		}
		mapping, err := config.LoadMapping(cfg.Path(cfg.Columns.MappingFile))
		if err != nil {
			c.err = err
			return
		}
		c.cfg, c.mapping, c.log = cfg, mapping, log
	})
	return c.err
}

func (c *commandContext) openDB() (*sql.DB, error) {
	db, err := database.Setup(c.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", c.cfg.Database.Path, err)
	}
	return db, nil
}

func (c *commandContext) pipeline(db *sql.DB) *service.Pipeline {
	return &service.Pipeline{Config: c.cfg, Mapping: c.mapping, DB: db, Log: c.log}
}
