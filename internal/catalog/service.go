package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

var (
	// ErrProductNotFound is returned when no product matches the id.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound is returned when no category matches the id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrDuplicateCategory is returned when a category name is taken.
	ErrDuplicateCategory = errors.New("category already exists")
)

const (
	popularListKey = "catalog:products:list:popular"
	categoriesKey  = "catalog:categories"
)

type queryProvider interface {
	CreateProduct(ctx context.Context, arg store.ProductParams) (store.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, arg store.ProductParams) (store.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (store.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, f store.ProductFilter) ([]store.Product, error)
	CountProducts(ctx context.Context, f store.ProductFilter) (int64, error)

	CreateCategory(ctx context.Context, arg store.CategoryParams) (store.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, arg store.CategoryParams) (store.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (store.Category, error)
	ListCategories(ctx context.Context) ([]store.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	logger       zerolog.Logger
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	Logger       zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// ProductInput is the body of product create and update requests.
type ProductInput struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Price       money.Amount `json:"price" validate:"gte=0"`
	Category    string       `json:"category" validate:"required,max=100"`
	Description string       `json:"description" validate:"max=5000"`
	ImageURL    string       `json:"imageUrl" validate:"omitempty,max=2048"`
	Stock       int          `json:"stock" validate:"gte=0"`
	Sizes       []string     `json:"sizes" validate:"omitempty,dive,required,max=16"`
}

// Product is the public product payload.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Price       money.Amount `json:"price"`
	Category    string       `json:"category"`
	Description *string      `json:"description,omitempty"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
	Stock       int          `json:"stock"`
	InStock     bool         `json:"inStock"`
	Sizes       []string     `json:"sizes"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CategoryInput is the body of category create and update requests.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Icon        string `json:"icon" validate:"max=64"`
}

// Category is the public category payload.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = common.ClampPerPage(l, s.maxLimit)
	}
	return params, nil
}

// ListProducts returns filtered product list with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	useCache := params.Page == 1 && params.Limit == s.defaultLimit && params.Query == "" && params.Category == ""
	if useCache {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, popularListKey, &cached); err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	filter := store.ProductFilter{
		Category: params.Category,
		Query:    params.Query,
		Limit:    params.Limit,
		Offset:   common.Offset(params.Page, params.Limit),
	}
	total, err := s.queries.CountProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, productFromRow(row))
	}
	if useCache {
		s.warn(s.cache.SetJSON(ctx, popularListKey, cachedList{Items: items, Total: total}))
	}
	return ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetProduct returns one product, served from cache when possible.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	key := productKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.queries.GetProduct(ctx, id)
	if err != nil {
		return Product{}, notFound(err, ErrProductNotFound)
	}
	p := productFromRow(row)
	s.warn(s.cache.SetJSON(ctx, key, p))
	return p, nil
}

// CreateProduct adds a product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	row, err := s.queries.CreateProduct(ctx, in.params())
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.warn(s.cache.Delete(ctx, popularListKey))
	return productFromRow(row), nil
}

// UpdateProduct replaces the writable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (Product, error) {
	row, err := s.queries.UpdateProduct(ctx, id, in.params())
	if err != nil {
		return Product{}, notFound(err, ErrProductNotFound)
	}
	s.warn(s.cache.Delete(ctx, popularListKey, productKey(id)))
	return productFromRow(row), nil
}

// DeleteProduct removes a product. Past orders keep their item snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.DeleteProduct(ctx, id); err != nil {
		return notFound(err, ErrProductNotFound)
	}
	s.warn(s.cache.Delete(ctx, popularListKey, productKey(id)))
	return nil
}

// ListCategories returns every category sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if ok, err := s.cache.GetJSON(ctx, categoriesKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		result = append(result, categoryFromRow(row))
	}
	s.warn(s.cache.SetJSON(ctx, categoriesKey, result))
	return result, nil
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	row, err := s.queries.GetCategory(ctx, id)
	if err != nil {
		return Category{}, notFound(err, ErrCategoryNotFound)
	}
	return categoryFromRow(row), nil
}

// CreateCategory adds a category. Names are unique case-insensitively.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	row, err := s.queries.CreateCategory(ctx, in.params())
	if err != nil {
		return Category{}, categoryErr(err)
	}
	s.warn(s.cache.Delete(ctx, categoriesKey))
	return categoryFromRow(row), nil
}

// UpdateCategory renames or re-describes a category.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (Category, error) {
	row, err := s.queries.UpdateCategory(ctx, id, in.params())
	if err != nil {
		return Category{}, categoryErr(err)
	}
	s.warn(s.cache.Delete(ctx, categoriesKey))
	return categoryFromRow(row), nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.DeleteCategory(ctx, id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	s.warn(s.cache.Delete(ctx, categoriesKey))
	return nil
}

func (s *Service) warn(err error) {
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache operation failed")
	}
}

type cachedList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

func productKey(id uuid.UUID) string {
	return "catalog:products:detail:" + id.String()
}

func (in ProductInput) params() store.ProductParams {
	sizes := make([]string, 0, len(in.Sizes))
	for _, size := range in.Sizes {
		if trimmed := strings.TrimSpace(size); trimmed != "" {
			sizes = append(sizes, trimmed)
		}
	}
	return store.ProductParams{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		Description: optional(in.Description),
		ImageURL:    optional(in.ImageURL),
		Stock:       in.Stock,
		Sizes:       sizes,
	}
}

func (in CategoryInput) params() store.CategoryParams {
	return store.CategoryParams{
		Name:        strings.TrimSpace(in.Name),
		Description: optional(in.Description),
		Icon:        optional(in.Icon),
	}
}

func productFromRow(row store.Product) Product {
	sizes := row.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	return Product{
		ID:          row.ID.String(),
		Name:        row.Name,
		Price:       row.Price,
		Category:    row.Category,
		Description: row.Description,
		ImageURL:    row.ImageURL,
		Stock:       row.Stock,
		InStock:     row.Stock > 0,
		Sizes:       sizes,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func categoryFromRow(row store.Category) Category {
	return Category{
		ID:          row.ID.String(),
		Name:        row.Name,
		Description: row.Description,
		Icon:        row.Icon,
		CreatedAt:   row.CreatedAt,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}

func categoryErr(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrDuplicateCategory, err)
	}
	return notFound(err, ErrCategoryNotFound)
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
