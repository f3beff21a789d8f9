package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/storage"
)

// Deps are the collaborators handlers need. Only DB, Tokens and Log are required.
type Deps struct {
	DB        *gorm.DB
	Tokens    *auth.Tokens
	Log       *zap.Logger
	Uploads   storage.Store
	UploadMax int64
	Products  *cache.ProductCache
	Payments  payments.Intents
	Events    events.Publisher
	Currency  string
	PageSize  int
}

const formOverhead = 1 << 20

// Handler serves every /api route.
type Handler struct {
	db        *gorm.DB
	tokens    *auth.Tokens
	log       *zap.Logger
	uploads   storage.Store
	uploadMax int64
	products  *cache.ProductCache
	payments  payments.Intents
	events    events.Publisher
	currency  string
	pageSize  int
	policy    *bluemonday.Policy
	now       func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		db:        d.DB,
		tokens:    d.Tokens,
		log:       d.Log,
		uploads:   d.Uploads,
		uploadMax: d.UploadMax,
		products:  d.Products,
		payments:  d.Payments,
		events:    d.Events,
		currency:  d.Currency,
		pageSize:  d.PageSize,
		policy:    bluemonday.StrictPolicy(),
		now:       time.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.uploads == nil {
		h.uploads = storage.NewLocalStore("uploads")
	}
	if h.payments == nil {
		h.payments = payments.Disabled{}
	}
	if h.events == nil {
		h.events = events.NopPublisher{}
	}
	if h.currency == "" {
		h.currency = "inr"
	}
	if h.uploadMax <= 0 {
		h.uploadMax = 5 << 20
	}
	if h.pageSize <= 0 {
		h.pageSize = 5
	}
	return h
}

// Register mounts the route groups on api. limiter guards /auth.
func (h *Handler) Register(api *gin.RouterGroup, limiter gin.HandlerFunc) {
	authn := middleware.Authenticate(h.db, h.tokens)
	admin := middleware.RequireAdmin()
	// uploads get the image limit plus room for the other form fields
	upload := middleware.BodyLimit(h.uploadMax + formOverhead)

	a := api.Group("/auth", limiter)
	a.POST("/signup", upload, h.Signup)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/me", authn, h.Me)

	p := api.Group("/products", authn)
	p.GET("/search", h.SearchProducts)
	p.POST("", admin, h.CreateProduct)
	p.GET("", admin, h.ListProducts)
	p.GET("/:id", admin, h.GetProduct)
	p.PUT("/:id", admin, h.UpdateProduct)
	p.DELETE("/:id", admin, h.DeleteProduct)

	u := api.Group("/users", authn)
	u.POST("/address", h.AddAddress)
	u.GET("/address", h.ListAddresses)
	u.DELETE("/address/:id", h.DeleteAddress)
	u.GET("", admin, h.ListUsers)
	u.GET("/:id", admin, h.GetUser)
	u.PUT("/:id/update", admin, upload, h.UpdateUser)
	u.PUT("/:id/role", admin, h.ChangeUserRole)
	u.DELETE("/:id", admin, h.DeleteUser)

	c := api.Group("/carts", authn)
	c.POST("", h.AddCartItem)
	c.GET("", h.GetCart)
	c.POST("/checkout", h.CheckoutCart)
	c.PUT("/:id", h.ChangeQuantity)
	c.DELETE("/:id", h.DeleteCartItem)

	o := api.Group("/orders", authn)
	o.POST("", h.CreateOrder)
	o.GET("", h.ListOrders)
	o.GET("/index", admin, h.ListAllOrders)
	o.GET("/users/:id", admin, h.ListUserOrders)
	o.GET("/:id", h.GetOrder)
	o.PUT("/:id/cancel", h.CancelOrder)
	o.PUT("/:id/status", admin, h.ChangeOrderStatus)
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// user returns the authenticated caller. Routes using it sit behind Authenticate.
func user(c *gin.Context) *models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("Invalid "+name, apperr.InvalidID)
	}
	return uint(id), nil
}

// skip reads ?skip=, treating anything unparsable or negative as 0.
func skip(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("skip"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h *Handler) clean(s string) string {
	return strings.TrimSpace(h.policy.Sanitize(s))
}

func (h *Handler) cleanTags(in []string) models.Tags {
	out := models.Tags{}
	for _, t := range in {
		if t = h.clean(strings.ReplaceAll(t, ",", " ")); t != "" {
			out = append(out, t)
		}
	}
	return out
}
