package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fjod/go_cart/scan-cart/internal/broadcast"
	"github.com/fjod/go_cart/scan-cart/internal/cart"
	"github.com/fjod/go_cart/scan-cart/internal/catalog"
	"github.com/fjod/go_cart/scan-cart/internal/config"
	h "github.com/fjod/go_cart/scan-cart/internal/http"
	"github.com/fjod/go_cart/scan-cart/internal/ingest"
	"github.com/fjod/go_cart/scan-cart/internal/mongodb"
	"github.com/fjod/go_cart/scan-cart/internal/registry"
	"github.com/fjod/go_cart/scan-cart/internal/scan"
	"github.com/fjod/go_cart/scan-cart/pkg/logger"
)

const serviceName = "scan-cart"

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(logger.Options{Service: serviceName, Level: cfg.LogLevel})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("scan-cart stopped with error")
	}
	log.Info("scan-cart stopped")
}

func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	log.WithField("path", cfg.CatalogDBPath).Info("catalog ready")

	// MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("mongo disconnect failed")
		}
	}()
	log.WithField("database", cfg.MongoDBName).Info("connected to MongoDB")

	tagStore := registry.NewMongoStore(db)
	entryStore := cart.NewMongoStore(db)
	for _, s := range []any{tagStore, entryStore} {
		if ix, ok := s.(indexer); ok {
			if err := ix.CreateIndexes(ctx); err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}
		}
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	var tagCache registry.TagCache = registry.NewRedisCache(redisClient)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, tag cache disabled")
		tagCache = registry.NopCache{}
	}

	tags := registry.New(tagStore, tagCache, products, log.WithField("component", "registry"),
		registry.WithFetchTimeout(cfg.StorageTimeout))
	membership := cart.NewMembership(entryStore)

	hub := broadcast.NewHub(log.WithField("component", "broadcast"))
	defer func() {
		if err := hub.Close(); err != nil {
			log.WithError(err).Warn("closing broadcast observers failed")
		}
	}()
	if cfg.KafkaEnabled() {
		hub.AddObserver(broadcast.NewKafkaObserver(log, cfg.EventsTopic, cfg.KafkaBrokers...))
	}

	pipeline := scan.NewPipeline(tags, products, membership, hub, log.WithField("component", "pipeline"), cfg.StorageTimeout)

	limiter := h.NewClientLimiter(cfg.ScanRatePerSec, cfg.ScanRateBurst, 10*time.Minute)
	router := h.NewRouter(h.Handlers{
		Scans:    h.NewScanHandler(pipeline, log),
		Tags:     h.NewTagHandler(tags, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(membership, cfg.RequestTimeout),
		Products: h.NewProductHandler(products, cfg.RequestTimeout),
		Socket:   broadcast.NewWebsocketHandler(hub, log.WithField("component", "socket")),
	}, limiter, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, serviceName),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.HTTPPort).Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.WithField("port", cfg.GRPCPort).Info("gRPC health server starting")
		healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		limiter.Run(gctx, time.Minute)
		return nil
	})

	if cfg.KafkaEnabled() {
		consumer := ingest.NewConsumer(pipeline, log, cfg.ScanTopic, serviceName, cfg.KafkaBrokers...)
		g.Go(func() error {
			defer consumer.Close()
			log.WithField("topic", cfg.ScanTopic).Info("scan consumer starting")
			consumer.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}
