package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salon-service/config"
	"salon-service/internal/api"
	"salon-service/internal/broker"
	"salon-service/internal/gateway"
	"salon-service/internal/mailer"
	"salon-service/internal/redisclient"
	"salon-service/internal/service"
	"salon-service/internal/session"
	"salon-service/internal/store"
	"salon-service/internal/util"
	"salon-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting salon service")

	tp, err := util.InitTracer("salon-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, logger)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	sessionStore := session.NewRedisStore(redisClient,
		time.Duration(cfg.Business.SessionTTLSeconds)*time.Second)
	razorpay := gateway.NewRazorpayClient(cfg.Razorpay)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP, logger)

	catalogService := service.NewCatalogService(db)
	cartService := service.NewCartService(db, sessionStore, razorpay)
	checkoutService := service.NewCheckoutService(
		db, db, db, sessionStore, razorpay, eventPublisher, smtpMailer)
	orderService := service.NewOrderService(db, db, eventPublisher, smtpMailer)
	bookingService := service.NewBookingService(
		db, db, razorpay, eventPublisher, smtpMailer,
		service.RandomStaffPicker, cfg.Business.HomeVisitFee)
	inventoryService := service.NewInventoryService(db, db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup, logger)
	analyticsWorker := worker.NewAnalyticsWorker(consumer, redisClient)
	statsReader := worker.NewStatsReader(redisClient)
	go func() {
		if err := analyticsWorker.Start(workerCtx); err != nil {
			log.Printf("Analytics worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		catalogService, cartService, checkoutService, orderService,
		bookingService, inventoryService, statsReader,
		cfg.Business.LowStockThreshold)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	analyticsWorker.Stop()

	log.Println("Server exited")
}
