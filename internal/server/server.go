package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
)

const sessionName = "sf_session"

// Options wires the router. Registry defaults to a fresh prometheus registry.
type Options struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Handler  *handlers.Handler
	Registry *prometheus.Registry
}

// NewRouter builds the gin engine with the full middleware stack and every route.
func NewRouter(o Options) *gin.Engine {
	cfg := o.Config
	reg := o.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.UploadMaxBytes
	r.Use(logger.RequestID())
	r.Use(ginzap.Ginzap(o.Log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(o.Log, true))
	r.Use(middleware.NewMetrics(reg).Middleware())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	store := cookie.NewStore([]byte(cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(apperr.Middleware(o.Log))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := o.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	if cfg.S3Bucket == "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	o.Handler.Register(r.Group("/api"), middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// credentials rule out a literal "*", so echo the caller's origin
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	return c
}
