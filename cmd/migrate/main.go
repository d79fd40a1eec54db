package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/citygarden/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var (
		dsn     = flag.String("dsn", "", "Database connection string (defaults to the service database config)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	if *dsn == "" {
		_ = godotenv.Load()
		db, err := config.LoadDatabase()
		if err != nil {
			return fmt.Errorf("resolve database config: %w", err)
		}
		*dsn = db.Dsn()
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, *dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			return fmt.Errorf("force version %d: %w", *force, err)
		}
		logger.Info("version forced", "version", *force)
	case *up:
		return apply(logger, "up", m.Up())
	case *down:
		return apply(logger, "down", m.Down())
	case *steps != 0:
		return apply(logger, fmt.Sprintf("steps %d", *steps), m.Steps(*steps))
	default:
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn <connection-string>] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
	return nil
}

func apply(logger *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("schema already current", "op", op)
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	default:
		logger.Info("migrations applied", "op", op)
	}
	return nil
}
