package main

import (
	"context"
	stlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-checkout/config"
	"go-checkout/log"
	"go-checkout/payment/db"
	"go-checkout/payment/gateway"
	"go-checkout/payment/order"
	"go-checkout/service"
	"go-checkout/web/controllers"
	"go-checkout/web/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stlog.Fatalln("Error loading config:", err)
	}
	if err := cfg.Validate(); err != nil {
		stlog.Fatalln("Invalid config:", err)
	}

	logger, err := log.New(cfg.IsDevelopment())
	if err != nil {
		stlog.Fatalln("Error creating logger:", err)
	}
	defer logger.Sync()

	gdb, err := db.Connect(cfg.DSN)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := db.Sync(gdb); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	store := db.NewStore(gdb)

	rp, err := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if err != nil {
		logger.Fatal("gateway", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orders := order.NewService(rp, store, logger, order.Options{
		KeySecret:       cfg.RazorpayKeySecret,
		MinAmount:       cfg.MinAmount,
		DefaultCurrency: cfg.DefaultCurrency,
	})
	webhooks := order.NewWebhookHandler(store, store, cfg.RazorpayWebhookSecret, logger, time.Now)

	if cfg.ReconcileInterval > 0 {
		go order.NewReconciler(rp, store, logger).Run(ctx, cfg.ReconcileInterval, cfg.ReconcileLookback)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), log.GinLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	if len(cfg.CORSOrigins) == 0 || cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	limiter.StartCleanup(ctx, 10*time.Minute)

	(&controllers.HealthController{DB: gdb}).RegisterRoutes(r)

	pc := &controllers.PaymentController{
		Orders:   orders,
		Webhooks: webhooks,
		Logger:   logger,
	}
	pc.RegisterRoutes(r, middleware.Authenticate(cfg.JWTSecret), limiter.Middleware())

	done := service.Start(ctx, ":"+cfg.GinPort, r, logger)
	<-done.Done()
	logger.Info("payment service shut down")
}
