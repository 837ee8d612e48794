package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victorcanash/EcommerceAPI-sub000/internal/cart"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/checkout"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/database"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/httpapi"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/inventory"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/mailer"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/order"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/payment"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/pricing"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/supplier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres: catalog, orders, checkout sessions
	db, err := database.Open(&cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to open postgres: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, &cfg.Postgres); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// MongoDB: stored carts
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	if err := cart.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("failed to create cart indexes: %v", err)
	}

	// Redis: cart cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	mail := mailer.NewKafkaMailer(cfg.MailTopic, cfg.KafkaBrokers...)
	defer mail.Close()

	httpClient := &http.Client{Timeout: 20 * time.Second}

	gateway, err := payment.NewGateway(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to build payment gateway: %v", err)
	}
	supplierClient := supplier.NewClient(cfg.Supplier, httpClient)

	orderRepo := order.NewRepository(db)
	inventoryRepo := inventory.NewRepository(db)
	inventorySvc := inventory.NewService(inventoryRepo)
	cartSvc := cart.NewService(cart.NewMongoRepository(mongoDB), cart.NewRedisCache(redisClient, cfg.CartCacheTTL))
	pricer := pricing.NewEngine(cfg.VATPercent, cfg.FirstBuyDiscountPct, orderRepo)

	checkoutSvc := checkout.NewService(
		cartSvc, inventorySvc, pricer, orderRepo,
		gateway, supplierClient, mail,
		cfg.Currency, cfg.OperatorEmail,
	)

	// Background stock refresh from the supplier
	syncer := inventory.NewSyncer(inventoryRepo, supplierClient, cfg.StockSyncInterval)
	go syncer.Run(ctx)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartSvc, checkoutSvc, cfg.RequestTimeout),
		httpapi.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout),
		httpapi.NewOrdersHandler(checkoutSvc, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server starting on :%s (payment provider: %s)", cfg.HTTPPort, cfg.PaymentProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
