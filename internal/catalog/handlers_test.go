package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/catalog"
	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

type fakeCatalogQueries struct {
	mu            sync.Mutex
	products      map[uuid.UUID]store.Product
	categories    map[uuid.UUID]store.Category
	listCalls     int
	categoryCalls int
}

func newFakeCatalogQueries() *fakeCatalogQueries {
	return &fakeCatalogQueries{products: map[uuid.UUID]store.Product{}, categories: map[uuid.UUID]store.Category{}}
}

func (f *fakeCatalogQueries) CreateProduct(_ context.Context, arg store.ProductParams) (store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := store.Product{ID: uuid.New(), Name: arg.Name, Price: arg.Price, Category: arg.Category, Description: arg.Description,
		ImageURL: arg.ImageURL, Stock: arg.Stock, Sizes: arg.Sizes, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalogQueries) UpdateProduct(_ context.Context, id uuid.UUID, arg store.ProductParams) (store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	p.Name, p.Price, p.Category, p.Stock, p.Sizes = arg.Name, arg.Price, arg.Category, arg.Stock, arg.Sizes
	f.products[id] = p
	return p, nil
}

func (f *fakeCatalogQueries) GetProduct(_ context.Context, id uuid.UUID) (store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalogQueries) DeleteProduct(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeCatalogQueries) matching(filter store.ProductFilter) []store.Product {
	var out []store.Product
	for _, p := range f.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeCatalogQueries) ListProducts(_ context.Context, filter store.ProductFilter) ([]store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	all := f.matching(filter)
	if filter.Offset >= len(all) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

func (f *fakeCatalogQueries) CountProducts(_ context.Context, filter store.ProductFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f *fakeCatalogQueries) CreateCategory(_ context.Context, arg store.CategoryParams) (store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, arg.Name) {
			return store.Category{}, store.ErrConflict
		}
	}
	c := store.Category{ID: uuid.New(), Name: arg.Name, Description: arg.Description, Icon: arg.Icon, CreatedAt: time.Now()}
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeCatalogQueries) UpdateCategory(_ context.Context, id uuid.UUID, arg store.CategoryParams) (store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return store.Category{}, store.ErrNotFound
	}
	c.Name, c.Description, c.Icon = arg.Name, arg.Description, arg.Icon
	f.categories[id] = c
	return c, nil
}

func (f *fakeCatalogQueries) GetCategory(_ context.Context, id uuid.UUID) (store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return store.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCatalogQueries) ListCategories(context.Context) ([]store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls++
	out := make([]store.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCatalogQueries) DeleteCategory(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func withID(req *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func newHandler(t *testing.T, q *fakeCatalogQueries, cache *catalog.Cache) *catalog.Handler {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: q, Cache: cache, DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	return catalog.NewHandler(catalog.HandlerConfig{Service: svc})
}

type productsResponse struct {
	Data       []catalog.Product `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

func TestProductLifecycle(t *testing.T) {
	q := newFakeCatalogQueries()
	h := newHandler(t, q, nil)

	rec := httptest.NewRecorder()
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"name":"Kemeja Linen","price":75000,"category":"Kemeja","stock":3,"sizes":["M"," L "]}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, money.Amount(75_000), created.Data.Price)
	require.Equal(t, []string{"M", "L"}, created.Data.Sizes)
	require.True(t, created.Data.InStock)

	rec = httptest.NewRecorder()
	h.UpdateProduct(rec, withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Kemeja Linen","price":80000,"category":"Kemeja","stock":0}`)), created.Data.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"inStock":false`)

	rec = httptest.NewRecorder()
	h.DeleteProduct(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil), created.Data.ID))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Product(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), created.Data.ID))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "PRODUCT_NOT_FOUND")
}

func TestCreateProductValidation(t *testing.T) {
	h := newHandler(t, newFakeCatalogQueries(), nil)
	rec := httptest.NewRecorder()
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","price":-1,"category":"x"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProductsFilterAndPaginate(t *testing.T) {
	q := newFakeCatalogQueries()
	ctx := context.Background()
	for _, name := range []string{"Kemeja Linen", "Kemeja Flanel", "Celana Chino"} {
		category := "Kemeja"
		if strings.HasPrefix(name, "Celana") {
			category = "Celana"
		}
		_, err := q.CreateProduct(ctx, store.ProductParams{Name: name, Price: 100_000, Category: category})
		require.NoError(t, err)
	}
	h := newHandler(t, q, nil)

	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/products?category=kemeja&limit=1&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var resp productsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Kemeja Linen", resp.Data[0].Name)
	require.Equal(t, 2, resp.Pagination.Page)

	rec = httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/products?q=chino", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)

	rec = httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/products?page=0", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductListCacheInvalidatedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := newFakeCatalogQueries()
	h := newHandler(t, q, catalog.NewCache(rdb, time.Minute))

	list := func() productsResponse {
		rec := httptest.NewRecorder()
		h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}
	require.Empty(t, list().Data)
	require.Empty(t, list().Data)
	require.Equal(t, 1, q.listCalls)

	rec := httptest.NewRecorder()
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Jaket","price":300000,"category":"Jaket"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, list().Data, 1)
	require.Equal(t, 2, q.listCalls)
}

func TestCategoryLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := newFakeCatalogQueries()
	h := newHandler(t, q, catalog.NewCache(rdb, time.Minute))

	rec := httptest.NewRecorder()
	h.CreateCategory(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Kemeja","icon":"shirt"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data catalog.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	h.CreateCategory(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"kemeja"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		h.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	}
	require.Equal(t, 1, q.categoryCalls)

	rec = httptest.NewRecorder()
	h.UpdateCategory(rec, withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Kemeja Pria"}`)), created.Data.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Contains(t, rec.Body.String(), "Kemeja Pria")
	require.Equal(t, 2, q.categoryCalls)

	rec = httptest.NewRecorder()
	h.DeleteCategory(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil), created.Data.ID))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Category(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), created.Data.ID))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Category(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "nope"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
