package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/cache"
	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/testutil"
)

type page struct {
	Count int64            `json:"count"`
	Data  []models.Product `json:"data"`
}

func TestProducts_AdminOnly(t *testing.T) {
	h := newHarness(t)
	u := testutil.CreateUser(t, h.db, "u@example.com", models.RoleUser)

	rec := h.do(http.MethodPost, "/api/products", testutil.Token(t, u), map[string]any{"name": "Tea", "description": "d", "price": 1})
	requireError(t, rec, http.StatusForbidden, apperr.Forbidden)

	rec = h.do(http.MethodGet, "/api/products", "", nil)
	requireError(t, rec, http.StatusUnauthorized, apperr.Unauthorized)
}

func TestProducts_CRUD(t *testing.T) {
	h := newHarness(t)
	admin := testutil.Token(t, testutil.CreateUser(t, h.db, "a@example.com", models.RoleAdmin))

	rec := h.do(http.MethodPost, "/api/products", admin, map[string]any{
		"name": "Assam <b>Tea</b>", "description": "Strong black tea", "price": "249.99", "tags": []string{"tea", "india"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[models.Product](t, rec)
	assert.Equal(t, "Assam Tea", created.Name)
	assert.Equal(t, models.Tags{"tea", "india"}, created.Tags)
	assert.True(t, decimal.RequireFromString("249.99").Equal(created.Price))

	var raw struct{ Tags string }
	require.NoError(t, h.db.Model(&models.Product{}).Select("tags").Where("id = ?", created.ID).Scan(&raw).Error)
	assert.Equal(t, "tea,india", raw.Tags)

	rec = h.do(http.MethodPut, fmt.Sprintf("/api/products/%d", created.ID), admin, map[string]any{
		"price": 199, "tags": []string{"tea", "assam"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Product](t, rec)
	assert.Equal(t, "Assam Tea", updated.Name)
	assert.True(t, decimal.NewFromInt(199).Equal(updated.Price))
	assert.Equal(t, models.Tags{"tea", "assam"}, updated.Tags)

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[models.Product](t, rec).ID)

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product deleted successfully")

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), admin, nil)
	requireError(t, rec, http.StatusNotFound, apperr.ProductNotFound)
	rec = h.do(http.MethodPut, fmt.Sprintf("/api/products/%d", created.ID), admin, map[string]any{"name": "x"})
	requireError(t, rec, http.StatusNotFound, apperr.ProductNotFound)
	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", created.ID), admin, nil)
	requireError(t, rec, http.StatusNotFound, apperr.ProductNotFound)
}

func TestProducts_Validation(t *testing.T) {
	h := newHarness(t)
	admin := testutil.Token(t, testutil.CreateUser(t, h.db, "a@example.com", models.RoleAdmin))

	rec := h.do(http.MethodPost, "/api/products", admin, map[string]any{"description": "d"})
	b := requireError(t, rec, http.StatusUnprocessableEntity, apperr.UnprocessableEntity)
	assert.Contains(t, string(b.Errors), `"field":"name"`)
	assert.Contains(t, string(b.Errors), `"field":"price"`)

	rec = h.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "n", "description": "d", "price": -3})
	requireError(t, rec, http.StatusUnprocessableEntity, apperr.UnprocessableEntity)

	rec = h.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "n", "description": "d", "price": "100000000"})
	b = requireError(t, rec, http.StatusUnprocessableEntity, apperr.UnprocessableEntity)
	assert.Contains(t, string(b.Errors), `"rule":"lte"`)

	rec = h.do(http.MethodGet, "/api/products/abc", admin, nil)
	requireError(t, rec, http.StatusBadRequest, apperr.InvalidID)
}

func TestProducts_ListPaging(t *testing.T) {
	h := newHarness(t)
	admin := testutil.Token(t, testutil.CreateUser(t, h.db, "a@example.com", models.RoleAdmin))
	for i := 1; i <= 7; i++ {
		testutil.CreateProduct(t, h.db, fmt.Sprintf("p%d", i), "10")
	}

	first := decode[page](t, h.do(http.MethodGet, "/api/products", admin, nil))
	assert.Equal(t, int64(7), first.Count)
	require.Len(t, first.Data, 5)
	assert.Equal(t, "p1", first.Data[0].Name)

	second := decode[page](t, h.do(http.MethodGet, "/api/products?skip=5", admin, nil))
	require.Len(t, second.Data, 2)
	assert.Equal(t, "p6", second.Data[0].Name)

	junk := decode[page](t, h.do(http.MethodGet, "/api/products?skip=abc", admin, nil))
	assert.Len(t, junk.Data, 5)
}

func TestProducts_Search(t *testing.T) {
	h := newHarness(t)
	u := testutil.Token(t, testutil.CreateUser(t, h.db, "u@example.com", models.RoleUser))
	testutil.CreateProduct(t, h.db, "Darjeeling Tea", "10", "tea")
	testutil.CreateProduct(t, h.db, "Filter Coffee", "12", "coffee", "south")
	testutil.CreateProduct(t, h.db, "100% Cocoa", "15")

	res := decode[page](t, h.do(http.MethodGet, "/api/products/search?q=TEA", u, nil))
	require.Equal(t, int64(1), res.Count)
	assert.Equal(t, "Darjeeling Tea", res.Data[0].Name)

	res = decode[page](t, h.do(http.MethodGet, "/api/products/search?q=south", u, nil))
	require.Equal(t, int64(1), res.Count)
	assert.Equal(t, "Filter Coffee", res.Data[0].Name)

	// % is matched literally
	res = decode[page](t, h.do(http.MethodGet, "/api/products/search?q=0%25", u, nil))
	require.Equal(t, int64(1), res.Count)
	assert.Equal(t, "100% Cocoa", res.Data[0].Name)

	requireError(t, h.do(http.MethodGet, "/api/products/search", u, nil), http.StatusUnprocessableEntity, apperr.UnprocessableEntity)
}

func TestProducts_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, func(d *handlers.Deps) { d.Products = cache.NewProductCache(rdb, zap.NewNop()) })
	admin := testutil.Token(t, testutil.CreateUser(t, h.db, "a@example.com", models.RoleAdmin))
	p := testutil.CreateProduct(t, h.db, "Tea", "10")
	key := fmt.Sprintf("product:detail:%d", p.ID)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), admin, nil).Code)
	assert.True(t, mr.Exists(key))

	rec := h.do(http.MethodPut, fmt.Sprintf("/api/products/%d", p.ID), admin, map[string]any{"name": "Green Tea"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mr.Exists(key))

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), admin, nil)
	assert.Equal(t, "Green Tea", decode[models.Product](t, rec).Name)
}
