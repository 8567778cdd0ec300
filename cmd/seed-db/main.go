// Command seed-db loads the catalog products and the starter coupon set into
// the database. Safe to re-run; everything upserts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/himanshuaggarwal31/luvora/internal/repository"
)

type productJSON struct {
	ID              string          `json:"id"`
	SKU             string          `json:"sku"`
	Title           string          `json:"title"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity"`
	TrackInventory  bool            `json:"track_inventory"`
	AllowBackorders bool            `json:"allow_backorders"`
}

const upsertProductSQL = `INSERT INTO products
	(id, sku, title, category, price, stock_quantity, track_inventory, allow_backorders, is_available)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		sku = EXCLUDED.sku,
		title = EXCLUDED.title,
		category = EXCLUDED.category,
		price = EXCLUDED.price,
		stock_quantity = EXCLUDED.stock_quantity,
		track_inventory = EXCLUDED.track_inventory,
		allow_backorders = EXCLUDED.allow_backorders,
		is_available = TRUE,
		updated_at = now()`

const upsertCouponSQL = `INSERT INTO coupons
	(id, code, description, discount_type, value, valid_from, valid_to, usage_limit, minimum_purchase, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		description = EXCLUDED.description,
		discount_type = EXCLUDED.discount_type,
		value = EXCLUDED.value,
		valid_from = EXCLUDED.valid_from,
		valid_to = EXCLUDED.valid_to,
		usage_limit = EXCLUDED.usage_limit,
		minimum_purchase = EXCLUDED.minimum_purchase,
		is_active = TRUE`

type seedCoupon struct {
	id              string
	code            string
	description     string
	discountType    string
	value           string
	usageLimit      int
	minimumPurchase string
	validFor        time.Duration
}

var starterCoupons = []seedCoupon{
	{
		id: "seed-welcome10", code: "WELCOME10",
		description:  "Welcome offer: 10% off your first order",
		discountType: "percent", value: "10",
		usageLimit: 0, minimumPurchase: "0",
		validFor: 365 * 24 * time.Hour,
	},
	{
		id: "seed-save500", code: "SAVE500",
		description:  "Flat ₹500 off orders above ₹2000",
		discountType: "fixed", value: "500",
		usageLimit: 100, minimumPurchase: "2000",
		validFor: 90 * 24 * time.Hour,
	},
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
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

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
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
		_, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.SKU, p.Title, p.Category, p.Price,
			p.StockQuantity, p.TrackInventory, p.AllowBackorders,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding starter coupons")

	now := time.Now()
	for _, c := range starterCoupons {
		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.id, c.code, c.description, c.discountType,
			decimal.RequireFromString(c.value),
			now, now.Add(c.validFor),
			c.usageLimit,
			decimal.RequireFromString(c.minimumPurchase),
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}
	return nil
}
