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

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS billing service")

	tp, err := util.InitTracer("pos-service", cfg.Observ.JaegerEndpoint)
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

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBilling)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	inventoryClient := service.NewInventoryClient(db, redisClient)
	loyaltyService := service.NewLoyaltyService(db, redisClient, eventPublisher, cfg.Business.LoyaltyEarnDivisor)
	cashRegisterService := service.NewCashRegisterService(db, redisClient, eventPublisher)
	checkoutService := service.NewCheckoutService(db, redisClient, eventPublisher, inventoryClient,
		loyaltyService, cashRegisterService, cfg.Business.GSTRatePercent, cfg.Business.LoyaltyEarnDivisor)
	returnService := service.NewReturnService(db, eventPublisher, inventoryClient, cashRegisterService)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	loyaltyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBilling, cfg.Kafka.ConsumerGroup)
	loyaltyWorker := worker.NewLoyaltyWorker(loyaltyConsumer, db, loyaltyService)
	go func() {
		if err := loyaltyWorker.Start(workerCtx); err != nil {
			log.Printf("Loyalty worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	storeTimeout := time.Duration(cfg.Business.StoreTimeoutSeconds) * time.Second
	handler := api.NewHandler(checkoutService, returnService, cashRegisterService, loyaltyService, storeTimeout)
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
	loyaltyWorker.Stop()

	log.Println("Server exited")
}
