package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

// upsertWorkers bounds concurrent product upserts.
const upsertWorkers = 4

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file, optionally gzipped (default: embedded sample)")
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

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	catalog, err := readCatalog(catalogFile, db.SampleCatalog)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool, zap.NewNop()); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seed(ctx, postgres.NewProductRepository(pool), catalog)
}

// seed upserts categories first so products can reference them by ID.
func seed(ctx context.Context, w product.Writer, catalog *catalogJSON) error {
	slog.Info("upserting categories", slog.Int("count", len(catalog.Categories)))

	categoryIDs := make(map[string]string, len(catalog.Categories))
	for _, c := range catalog.Categories {
		id, err := w.UpsertCategory(ctx, c.toDomain())
		if err != nil {
			return errors.Wrapf(err, "upsert category %s", c.Slug)
		}
		categoryIDs[c.Slug] = id

		slog.Info("upserted category", slog.String("slug", c.Slug), slog.String("id", id))
	}

	slog.Info("upserting products", slog.Int("count", len(catalog.Products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertWorkers)
	for _, p := range catalog.Products {
		g.Go(func() error {
			id, err := w.UpsertProduct(ctx, p.toDomain(categoryIDs))
			if err != nil {
				return errors.Wrapf(err, "upsert product %s", p.SKU)
			}
			slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("id", id))
			return nil
		})
	}
	return g.Wait()
}
