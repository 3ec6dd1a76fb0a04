// Command seeder loads demo catalog, promo and account data into a migrated database.
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/tokobaju-api/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), os.Getenv("OBS_LOG_LEVEL")).With().Str("component", "seeder").Logger()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	s := seeder{
		db:   db,
		hash: func(pw string) (string, error) { return argon2id.CreateHash(pw, argon2id.DefaultParams) },
		log:  logger,
		now:  time.Now,
	}
	if err := s.run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}
