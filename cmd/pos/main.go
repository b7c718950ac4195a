package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/config"
	"github.com/wichananm65/table-pos/internal/logger"
	"github.com/wichananm65/table-pos/internal/order"
	"github.com/wichananm65/table-pos/internal/payment"
	"github.com/wichananm65/table-pos/internal/pricing"
	"github.com/wichananm65/table-pos/internal/product"
	"github.com/wichananm65/table-pos/internal/receipt"
	"github.com/wichananm65/table-pos/internal/remote"
	"github.com/wichananm65/table-pos/internal/staff"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	setupCORS(app)
	app.Use(requestLogger(log))

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.OrderServiceURL,
		Timeout: cfg.HTTPTimeout,
		Retries: cfg.FetchRetries,
	}, log)

	// one flash sale and one set of cached totals shared by every screen
	flash := pricing.NewFlashSale(pricing.FlashSaleSize, pricing.FlashSaleWindow)
	totals := checkout.NewTotals()

	productService := product.NewService(product.NewRemoteRepository(client), flash)
	productHandler := product.NewHandler(productService)

	orderService := order.NewService(order.NewRemoteRepository(client), productService, cfg.TaxRate, totals, log)
	orderHandler := order.NewHandler(orderService)

	paymentHandler := payment.NewHandler(payment.NewFinalizer(client, totals, log))

	ledger, closeLedger := openLedger(cfg, log)
	defer closeLedger()

	var sharer receipt.Sharer = receipt.Unavailable{}
	if cfg.ShareDir != "" {
		sharer = receipt.NewOutboxSharer(cfg.ShareDir)
	}
	pipeline := receipt.NewPipeline(client, receipt.NewFileStore(cfg.ReceiptDir), sharer, receipt.NewDrafts(), ledger, totals, log)
	receiptHandler := receipt.NewHandler(pipeline)

	productHandler.RegisterPublicRoutes(app)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, protected routes will reject every token")
	}
	app.Use(staff.Middleware(cfg.JWTSecret))

	productHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	paymentHandler.RegisterProtectedRoutes(app)
	receiptHandler.RegisterProtectedRoutes(app)

	log.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.String("order_service", cfg.OrderServiceURL),
		zap.Bool("sharing", sharer.Available()))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// openLedger uses Postgres when DATABASE_URL is set and keeps the ledger in
// memory otherwise.
func openLedger(cfg config.Config, log *zap.Logger) (receipt.Ledger, func()) {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL is not set, cleanup failures are kept in memory")
		return receipt.NewInMemoryLedger(), func() {}
	}
	db := mustOpenDB(cfg.DatabaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	l := receipt.NewPostgresLedger(db)
	if err := l.Migrate(ctx); err != nil {
		panic(err)
	}
	return l, func() { db.Close() }
}

func mustOpenDB(dbURL string) *sql.DB {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(err)
	}

	return db
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("elapsed", time.Since(start)))
		return err
	}
}
