// Command seed-db loads a promotion catalog JSON file into PostgreSQL,
// running migrations first. Without --promotions-file it loads the embedded
// default catalog.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"promosvc/db"
	"promosvc/internal/domain/promotion"
	"promosvc/internal/storage/postgres"
)

func main() {
	var (
		databaseURL    string
		promotionsFile string
		replace        bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&promotionsFile, "promotions-file", "", "path to promotions JSON file (default: embedded catalog)")
	flag.BoolVar(&replace, "replace", false, "overwrite promotions that already exist")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, promotionsFile, replace); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, promotionsFile string, replace bool) error {
	data := db.SeedPromotions
	if promotionsFile != "" {
		slog.Info("reading promotions file", slog.String("path", promotionsFile))
		fileData, err := os.ReadFile(promotionsFile)
		if err != nil {
			return errors.Wrap(err, "read promotions file")
		}
		data = fileData
	}

	promos, err := promotion.DecodePromotions(data)
	if err != nil {
		return errors.Wrap(err, "parse promotions JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewPromotionStore(pool)

	slog.Info("loading promotions", slog.Int("count", len(promos)))

	for i := range promos {
		p := &promos[i]
		err := store.Create(ctx, p)
		if errors.Is(err, promotion.ErrDuplicatePromotion) && replace {
			err = store.Update(ctx, p)
		}
		if err != nil {
			return errors.Wrapf(err, "store promotion %s", p.ID)
		}
		slog.Info("stored promotion", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}
