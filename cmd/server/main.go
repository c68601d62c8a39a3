package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rinkworks/venuepos/internal/adapter/events"
	"github.com/rinkworks/venuepos/internal/adapter/handler"
	"github.com/rinkworks/venuepos/internal/adapter/storage"
	"github.com/rinkworks/venuepos/internal/config"
	"github.com/rinkworks/venuepos/internal/core/service"
	"github.com/rinkworks/venuepos/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	if cfg.MigrationsDir != "" {
		if err := runMigrations(cfg.MigrationsDir, cfg.MySQLDSN); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied", zap.String("dir", cfg.MigrationsDir))
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.CatalogSnapshotTTL)

	// Core services
	catalogCache := service.NewCatalogCache(mysqlAdapter, redisAdapter, cfg.CatalogTTL, logger)
	checkoutService := service.NewCheckoutService(
		mysqlAdapter, mysqlAdapter, mysqlAdapter,
		catalogCache, redisAdapter, logger, cfg.EventQueueSize,
	)
	reconciler := service.NewReconciler(mysqlAdapter, cfg.ReconcileInterval, cfg.OrphanMinAge, logger)
	go reconciler.Run(ctx)

	// Sale event publisher workers
	var publisher *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.PublisherWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			publisherLoop(id, checkoutService.EventQueue(), publisher, logger)
		}(i)
	}
	logger.Info("started publisher workers", zap.Int("count", cfg.PublisherWorkers))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(catalogCache, checkoutService, mysqlAdapter, reconciler, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// gRPC health server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	go func() {
		logger.Info("grpc health server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	grpcServer.GracefulStop()
	logger.Info("grpc server stopped")

	checkoutService.Close()
	wg.Wait()
	logger.Info("publisher workers stopped")

	if publisher != nil {
		publisher.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func runMigrations(dir, dsn string) error {
	m, err := migrate.New("file://"+dir, "mysql://"+dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func publisherLoop(id int, queue <-chan port.SaleEvent, publisher *events.KafkaPublisher, logger *zap.Logger) {
	for event := range queue {
		if publisher == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := publisher.PublishSaleCommitted(ctx, event); err != nil {
			logger.Error("failed to publish sale event",
				zap.Int("worker", id),
				zap.String("sale_id", event.SaleID),
				zap.Error(err))
		}
		cancel()
	}
}
