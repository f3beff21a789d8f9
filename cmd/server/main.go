package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	mydb "storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/payments"
	"storefront/internal/server"
	"storefront/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config depends on cfg, so fall back to a plain one here
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, closeDB, err := mydb.Connect(cfg)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handlers.Deps{
		DB:        db,
		Tokens:    auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Log:       log,
		UploadMax: cfg.UploadMaxBytes,
		Currency:  cfg.PaymentCurrency,
		PageSize:  cfg.PageSize,
	}

	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3StoreFromEnv(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			log.Fatal("s3", zap.Error(err))
		}
		deps.Uploads = s3Store
		log.Info("uploads go to s3", zap.String("bucket", cfg.S3Bucket))
	} else {
		deps.Uploads = storage.NewLocalStore(cfg.UploadDir)
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, product cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.Products = cache.NewProductCache(rdb, log)
		}
	}

	if cfg.AMQPURL != "" {
		pub, closeAMQP, err := events.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		} else {
			defer closeAMQP()
			deps.Events = pub
		}
	}

	if cfg.StripeSecretKey != "" {
		deps.Payments = payments.NewStripeIntents(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY empty; checkout payment intents disabled")
	}

	router := server.NewRouter(server.Options{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Handler: handlers.New(deps),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
