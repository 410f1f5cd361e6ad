package main

import (
	"github.com/wfunc/codebattle/config"
	"github.com/wfunc/codebattle/logger"
	"github.com/wfunc/codebattle/persistence"
	"github.com/wfunc/codebattle/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database (optional, matches are only archived when enabled)
	var db persistence.Database
	if cfg.Database.Enabled {
		pg := cfg.Database.Postgres

		var err error
		switch cfg.Database.Driver {
		case "pq":
			db, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		default:
			db, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Log.Info("Database connection successful.")
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
