package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type seedCategory struct {
	Name        string
	Description string
	Icon        string
}

type seedProduct struct {
	Name     string
	Category string
	Price    int64
	Stock    int
	Sizes    []string
	Image    string
}

type seedPromo struct {
	Code        string
	Name        string
	Type        string
	Value       string
	MinPurchase int64
	MaxDiscount *int64
	UsageLimit  *int
}

type seedUser struct {
	FullName string
	Email    string
	Role     string
}

const demoPassword = "password123"

var (
	categories = []seedCategory{
		{"Kemeja", "Kemeja pria dan wanita", "shirt"},
		{"Kaos", "Kaos harian", "t-shirt"},
		{"Celana", "Celana panjang dan pendek", "pants"},
		{"Jaket", "Jaket dan outer", "jacket"},
		{"Dress", "Dress dan gamis", "dress"},
	}
	products = []seedProduct{
		{"Kemeja Linen Putih", "Kemeja", 75_000, 40, []string{"S", "M", "L", "XL"}, "https://images.unsplash.com/photo-1602810318383-e386cc2a3ccf?w=800"},
		{"Kemeja Flanel Kotak", "Kemeja", 185_000, 25, []string{"M", "L", "XL"}, "https://images.unsplash.com/photo-1589310243389-96a5483213a8?w=800"},
		{"Kaos Hitam Polos", "Kaos", 65_000, 120, []string{"S", "M", "L", "XL", "XXL"}, "https://images.unsplash.com/photo-1583743814966-8936f5b7be1a?w=800"},
		{"Kaos Oversize Abu", "Kaos", 99_000, 60, []string{"M", "L", "XL"}, "https://images.unsplash.com/photo-1576566588028-4147f3842f27?w=800"},
		{"Celana Chino Krem", "Celana", 200_000, 35, []string{"28", "30", "32", "34"}, "https://images.unsplash.com/photo-1473966968600-fa801b869a1a?w=800"},
		{"Celana Jeans Slim", "Celana", 275_000, 30, []string{"28", "30", "32", "34", "36"}, "https://images.unsplash.com/photo-1542272604-787c3835535d?w=800"},
		{"Jaket Denim", "Jaket", 350_000, 15, []string{"M", "L", "XL"}, "https://images.unsplash.com/photo-1551537482-f2075a1d41f2?w=800"},
		{"Jaket Bomber Hijau", "Jaket", 425_000, 0, []string{"L", "XL"}, "https://images.unsplash.com/photo-1591047139829-d91aecb6caea?w=800"},
		{"Dress Floral Midi", "Dress", 240_000, 20, []string{"S", "M", "L"}, "https://images.unsplash.com/photo-1572804013309-59a88b7e92f1?w=800"},
	}
	promos = []seedPromo{
		{"HEMAT20", "Hemat 20%", "Percentage", "20", 0, ptr[int64](50_000), ptr(100)},
		{"DISKON100K", "Potongan 100 ribu", "Fixed", "100000", 200_000, nil, ptr(50)},
		{"WELCOME10", "Selamat datang", "Percentage", "10", 100_000, ptr[int64](25_000), nil},
	}
	users = []seedUser{
		{"Budi Santoso", "budi@example.com", "Customer"},
		{"Siti Aminah", "siti@example.com", "Customer"},
		{"Andi Pratama", "andi@example.com", "Customer"},
	}
)

func ptr[T any](v T) *T { return &v }

// seeder writes the fixtures in one transaction. Rows that already exist
// are left untouched, so the command can be rerun.
type seeder struct {
	db   *sql.DB
	hash func(string) (string, error)
	log  zerolog.Logger
	now  func() time.Time
}

func (s seeder) run(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx) (int64, error)
	}{
		{"categories", s.seedCategories},
		{"products", s.seedProducts},
		{"promos", s.seedPromos},
		{"users", s.seedUsers},
	}
	for _, step := range steps {
		n, err := step.fn(ctx, tx)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		s.log.Info().Str("table", step.name).Int64("inserted", n).Msg("seeded")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s seeder) seedCategories(ctx context.Context, tx *sql.Tx) (int64, error) {
	var total int64
	for _, c := range categories {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, description, icon)
			VALUES ($1, $2, $3)
			ON CONFLICT ((lower(name))) DO NOTHING`, c.Name, c.Description, c.Icon)
		if err != nil {
			return total, fmt.Errorf("%s: %w", c.Name, err)
		}
		total += affected(res)
	}
	return total, nil
}

func (s seeder) seedProducts(ctx context.Context, tx *sql.Tx) (int64, error) {
	var total int64
	for _, p := range products {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO products (name, category, price, stock, sizes, image_url)
			SELECT $1, $2, $3, $4, $5, $6
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($1))`,
			p.Name, p.Category, p.Price, p.Stock, pq.Array(p.Sizes), p.Image)
		if err != nil {
			return total, fmt.Errorf("%s: %w", p.Name, err)
		}
		total += affected(res)
	}
	return total, nil
}

func (s seeder) seedPromos(ctx context.Context, tx *sql.Tx) (int64, error) {
	start := s.now().UTC()
	end := start.AddDate(1, 0, 0)
	var total int64
	for _, p := range promos {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO promos (code, name, discount_type, discount_value, min_purchase, max_discount, start_date, end_date, usage_limit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT ((upper(code))) DO NOTHING`,
			p.Code, p.Name, p.Type, p.Value, p.MinPurchase, nullable(p.MaxDiscount), start, end, nullable(p.UsageLimit))
		if err != nil {
			return total, fmt.Errorf("%s: %w", p.Code, err)
		}
		total += affected(res)
	}
	return total, nil
}

func (s seeder) seedUsers(ctx context.Context, tx *sql.Tx) (int64, error) {
	hash, err := s.hash(demoPassword)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	var total int64
	for _, u := range users {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (email, password_hash, full_name, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ((lower(email))) DO NOTHING`, u.Email, hash, u.FullName, u.Role)
		if err != nil {
			return total, fmt.Errorf("%s: %w", u.Email, err)
		}
		total += affected(res)
	}
	return total, nil
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
