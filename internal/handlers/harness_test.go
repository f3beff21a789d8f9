package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/payments"
	"storefront/internal/storage"
	"storefront/internal/testutil"
)

type fakeIntents struct {
	amount   int64
	currency string
	err      error
}

func (f *fakeIntents) Create(_ context.Context, amount int64, currency string, _ map[string]string) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.amount, f.currency = amount, currency
	return &payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: amount, Currency: currency}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []events.OrderEventMessage
}

func (p *recordingPublisher) Publish(_ context.Context, m events.OrderEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return nil
}

type harness struct {
	t   *testing.T
	db  *gorm.DB
	r   *gin.Engine
	pay *fakeIntents
	pub *recordingPublisher
}

func newHarness(t *testing.T, opts ...func(*handlers.Deps)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{t: t, db: testutil.NewDB(t), pay: &fakeIntents{}, pub: &recordingPublisher{}}
	deps := handlers.Deps{
		DB:        h.db,
		Tokens:    testutil.Tokens(),
		Log:       zap.NewNop(),
		Uploads:   storage.NewLocalStore(t.TempDir()),
		UploadMax: 1 << 20,
		Payments:  h.pay,
		Events:    h.pub,
		Currency:  "inr",
		PageSize:  5,
	}
	for _, o := range opts {
		o(&deps)
	}

	h.r = gin.New()
	h.r.Use(sessions.Sessions("sf_session", cookie.NewStore([]byte("test"))))
	h.r.Use(apperr.Middleware(zap.NewNop()))
	handlers.New(deps).Register(h.r.Group("/api"), func(c *gin.Context) { c.Next() })
	return h
}

// do sends body as JSON (when non-nil) with token in Authorization.
func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.serve(req)
}

// form sends fields as multipart/form-data.
func (h *harness) form(method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, w.WriteField(k, v))
	}
	require.NoError(h.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.serve(req)
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Message   string          `json:"message"`
	ErrorCode apperr.Code     `json:"errorCode"`
	Errors    json.RawMessage `json:"errors"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperr.Code) errBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	b := decode[errBody](t, rec)
	require.Equal(t, code, b.ErrorCode, rec.Body.String())
	return b
}
