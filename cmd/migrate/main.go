package main

import (
	"errors"
	"flag"

	"werewolf-party/internal/config"
	"werewolf-party/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	source := flag.String("source", "file://db/migrations", "migration source URL")
	down := flag.Bool("down", false, "roll back every migration")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		logging.Log.WithError(err).Warn("failed to load .env")
	}
	logging.Init()
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		logging.Log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New(*source, cfg.DatabaseURL)
	if err != nil {
		logging.Log.WithError(err).Fatal("migration setup failed")
	}
	defer m.Close()

	run, verb := m.Up, "applied"
	if *down {
		run, verb = m.Down, "rolled back"
	}
	if err := run(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logging.Log.WithError(err).Fatal("database migration failed")
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logging.Log.WithError(err).Warn("read migration version")
	}
	logging.Log.WithField("version", version).WithField("dirty", dirty).Infof("database migrations %s", verb)
}
