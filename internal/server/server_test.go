package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/testutil"
)

func newTestRouter(t *testing.T, origins ...string) *gin.Engine {
	t.Helper()
	return routerWithDB(t, testutil.NewDB(t), origins...)
}

func routerWithDB(t *testing.T, db *gorm.DB, origins ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:                "test",
		JWTTTL:             time.Hour,
		SessionKey:         "test",
		UploadDir:          t.TempDir(),
		AllowedOrigins:     origins,
		RateLimitPerMinute: 600,
	}
	return NewRouter(Options{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		Handler:  handlers.New(handlers.Deps{DB: db, Tokens: testutil.Tokens()}),
		Registry: prometheus.NewRegistry(),
	})
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	rec := serve(routerWithDB(t, gdb), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get("X-Request-ID"))
}

func TestMetricsExposeRequests(t *testing.T) {
	r := newTestRouter(t)
	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestAPIRequiresAuth(t *testing.T) {
	r := newTestRouter(t)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/carts", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":4001`)
}

func TestLoginThroughRouterSetsSession(t *testing.T) {
	r := newTestRouter(t)

	body := `{"name":"Asha","email":"asha@example.com","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"asha@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookies[0])
	rec = serve(r, me)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "asha@example.com")
}

func TestCORS(t *testing.T) {
	t.Run("wildcard echoes origin", func(t *testing.T) {
		r := newTestRouter(t, "*")
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", "http://shop.local")
		req.Header.Set("Access-Control-Request-Method", "GET")
		rec := serve(r, req)
		assert.Equal(t, "http://shop.local", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})
	t.Run("list rejects others", func(t *testing.T) {
		r := newTestRouter(t, "http://admin.local")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.local")
		rec := serve(r, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCorsConfigDefaults(t *testing.T) {
	c := corsConfig(nil)
	require.NotNil(t, c.AllowOriginFunc)
	assert.True(t, c.AllowOriginFunc("http://anything"))
	assert.Empty(t, c.AllowOrigins)

	c = corsConfig([]string{"http://a.local"})
	assert.Nil(t, c.AllowOriginFunc)
	assert.Equal(t, []string{"http://a.local"}, c.AllowOrigins)
}
