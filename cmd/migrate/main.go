// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up          apply all pending migrations
//	migrate down [n]    roll back n migrations (default 1)
//	migrate version     print the current version
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), os.Getenv("OBS_LOG_LEVEL")).With().Str("component", "migrate").Logger()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	cmd, steps, err := parseArgs(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("usage: migrate up|down [n]|version")
	}

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			logger.Fatal().Err(verr).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	logger.Info().Str("command", cmd).Msg("migrations complete")
}

func parseArgs(args []string) (string, int, error) {
	if len(args) == 0 {
		return "up", 0, nil
	}
	switch args[0] {
	case "up", "version":
		return args[0], 0, nil
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return "", 0, fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return "down", steps, nil
	}
	return "", 0, fmt.Errorf("unknown command %q", args[0])
}
