package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Product is a row of the products table.
type Product struct {
	ID          uuid.UUID
	Name        string
	Price       money.Amount
	Category    string
	Description *string
	ImageURL    *string
	Stock       int
	Sizes       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductParams carries the writable product columns.
type ProductParams struct {
	Name        string
	Price       money.Amount
	Category    string
	Description *string
	ImageURL    *string
	Stock       int
	Sizes       []string
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Category string
	Query    string
	Limit    int
	Offset   int
}

// Category is a row of the categories table.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Icon        *string
	CreatedAt   time.Time
}

// CategoryParams carries the writable category columns.
type CategoryParams struct {
	Name        string
	Description *string
	Icon        *string
}

const productColumns = `id, name, price, category, description, image_url, stock, sizes, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Description, &p.ImageURL, &p.Stock, &p.Sizes, &p.CreatedAt, &p.UpdatedAt)
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	return p, err
}

func sizesOrEmpty(sizes []string) []string {
	if sizes == nil {
		return []string{}
	}
	return sizes
}

// CreateProduct inserts a product.
func (q *Queries) CreateProduct(ctx context.Context, arg ProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO products (name, price, category, description, image_url, stock, sizes)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+productColumns,
		arg.Name, arg.Price, arg.Category, arg.Description, arg.ImageURL, arg.Stock, sizesOrEmpty(arg.Sizes))
	p, err := scanProduct(row)
	return p, wrapErr("create product", err)
}

// UpdateProduct overwrites a product.
func (q *Queries) UpdateProduct(ctx context.Context, id uuid.UUID, arg ProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `UPDATE products SET name = $2, price = $3, category = $4, description = $5,
image_url = $6, stock = $7, sizes = $8, updated_at = now()
WHERE id = $1 RETURNING `+productColumns,
		id, arg.Name, arg.Price, arg.Category, arg.Description, arg.ImageURL, arg.Stock, sizesOrEmpty(arg.Sizes))
	p, err := scanProduct(row)
	return p, wrapErr("update product", err)
}

// GetProduct fetches a product by id.
func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	return p, wrapErr("get product", err)
}

// DeleteProduct removes a product.
func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("delete product", pgx.ErrNoRows)
	}
	return nil
}

func productWhere(f ProductFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if c := strings.TrimSpace(f.Category); c != "" {
		args = append(args, c)
		clauses = append(clauses, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		args = append(args, "%"+s+"%")
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListProducts returns products matching f ordered by name.
func (q *Queries) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	limit, offset := clampLimit(f.Limit, f.Offset)
	where, args := productWhere(f)
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr("list products", err)
	}
	defer rows.Close()
	out := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("list products", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("list products", rows.Err())
}

// CountProducts counts products matching f.
func (q *Queries) CountProducts(ctx context.Context, f ProductFilter) (int64, error) {
	where, args := productWhere(f)
	var total int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total)
	return total, wrapErr("count products", err)
}

const categoryColumns = `id, name, description, icon, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt)
	return c, err
}

// CreateCategory inserts a category.
func (q *Queries) CreateCategory(ctx context.Context, arg CategoryParams) (Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `INSERT INTO categories (name, description, icon)
VALUES ($1, $2, $3) RETURNING `+categoryColumns, arg.Name, arg.Description, arg.Icon))
	return c, wrapErr("create category", err)
}

// UpdateCategory overwrites a category.
func (q *Queries) UpdateCategory(ctx context.Context, id uuid.UUID, arg CategoryParams) (Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `UPDATE categories SET name = $2, description = $3, icon = $4
WHERE id = $1 RETURNING `+categoryColumns, id, arg.Name, arg.Description, arg.Icon))
	return c, wrapErr("update category", err)
}

// GetCategory fetches a category by id.
func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	return c, wrapErr("get category", err)
}

// ListCategories returns all categories ordered by name.
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, wrapErr("list categories", err)
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrapErr("list categories", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("list categories", rows.Err())
}

// DeleteCategory removes a category.
func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("delete category", pgx.ErrNoRows)
	}
	return nil
}
