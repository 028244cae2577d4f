package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/config"
	"github.com/safar/shop-api/internal/database"
	"github.com/safar/shop-api/internal/logger"
	"github.com/safar/shop-api/migrations"
)

func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != migrations.Up && direction != migrations.Down {
		logrus.Fatal("Direction must be 'up' or 'down'")
	}

	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	ran, err := migrations.Run(context.Background(), db, direction)
	if err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	for _, name := range ran {
		log.WithField("file", name).Info("Ran migration")
	}
	log.Infof("Successfully ran %d migration(s) %s", len(ran), direction)
}
