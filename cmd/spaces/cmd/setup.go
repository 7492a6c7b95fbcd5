package cmd

import (
	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/config"
	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/logger"
)

// environment loads config and installs the logger. Commands log as
// text so operators can read them.
func environment() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Options{
		Development: true,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.AppEnv,
	})
	return cfg
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	return db.Init(cfg.DBDriver, cfg.DBConnection)
}
