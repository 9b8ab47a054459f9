// Command seed-db provisions a database with catalog products and API keys
// for local development and integration testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/handler"
	"github.com/vishwas0229/riya-collections/internal/postgres"
)

type productJSON struct {
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

const upsertProductSQL = `INSERT INTO products (name, sku, price, stock)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (sku) DO UPDATE SET name = $1, price = $3, stock = $4`

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_id, role)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (key_hash) DO UPDATE SET name = $3, user_id = $4, role = $5`

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		userID       int64
		staffKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "customer API key to seed (or ORDERS_SEED_API_KEY env)")
	flag.Int64Var(&userID, "user-id", 1, "user id the customer API key belongs to")
	flag.StringVar(&staffKey, "staff-key", "", "staff API key to seed (optional)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ORDERS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, userID, staffKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey string, userID int64, staffKey, pepper string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper, "Customer test key", userID, "customer"); err != nil {
		return errors.Wrap(err, "seed customer api key")
	}
	if staffKey != "" {
		if err := seedAPIKey(ctx, pool, staffKey, pepper, "Staff test key", userID+1, "staff"); err != nil {
			return errors.Wrap(err, "seed staff api key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.Name, p.SKU, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper, name string, userID int64, role string) error {
	keyHash := handler.HashKey([]byte(pepper), apiKey)

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		uuid.New().String(), keyHash, name, userID, role,
	); err != nil {
		return errors.Wrapf(err, "upsert API key %q", name)
	}

	slog.Info("upserted API key", slog.String("name", name), slog.Int64("user_id", userID))
	return nil
}
