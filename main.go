package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"

	"racehub_backend/internals/configs"
	database "racehub_backend/internals/databases"
	paymentScheduler "racehub_backend/internals/features/races/payments/scheduler"
	paymentService "racehub_backend/internals/features/races/payments/service"
	helper "racehub_backend/internals/helpers"
	middlewares "racehub_backend/internals/middlewares"
	routes "racehub_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	cfg := configs.Load()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // sesuaikan dengan CIDR Cloudflare jika perlu
	})

	// ⚙️ middleware dasar + performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault})) // gzip
	app.Use(etag.New())                                                  // 304 caching

	// 🔎 Request-ID + timing
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		// batas waktu request; provider call punya timeout sendiri yang lebih pendek
		ctx, cancel := context.WithTimeout(c.Context(), cfg.HTTPRequestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 DB connect + pool + warm-up
	db := database.ConnectDB(cfg)
	database.TunePool(db)
	database.WarmUpQueries(db)

	if configs.GetEnvBool("DB_AUTO_MIGRATE", true) {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("❌ migrate: %v", err)
		}
	}

	rdb := database.ConnectRedis(cfg)

	// 🧾 reconcile stack (provider, allocator, QR, lock)
	mod, err := paymentService.Build(cfg, db, rdb)
	if err != nil {
		log.Fatalf("❌ reconcile stack: %v", err)
	}

	// ⏱ sweeper setelah DB siap
	sweeper := paymentScheduler.NewPendingSweeper(mod.Ledger, mod.Reconciler, cfg.SweeperBatch)
	cronJob, err := sweeper.Start(cfg.SweeperCron)
	if err != nil {
		log.Fatalf("❌ sweeper: %v", err)
	}

	// ✅ Routes (+ /health)
	routes.SetupRoutes(app, db, cfg, mod, sweeper)

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Printf("✅ Listening on :%s", cfg.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: stop cron, server, lalu tutup pool DB & redis
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-cronJob.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
