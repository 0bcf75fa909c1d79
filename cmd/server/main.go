package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feature-store-service/internal/adapters/primary/http/handlers"
	"feature-store-service/internal/adapters/primary/http/middleware"
	"feature-store-service/internal/adapters/secondary/ddb"
	"feature-store-service/internal/adapters/secondary/kserve"
	"feature-store-service/internal/adapters/secondary/localfs"
	"feature-store-service/internal/adapters/secondary/mlflow"
	"feature-store-service/internal/adapters/secondary/postgres"
	"feature-store-service/internal/adapters/secondary/redis"
	"feature-store-service/internal/adapters/secondary/secrets"
	"feature-store-service/internal/config"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/core/services"
	"feature-store-service/internal/featurerepo"
	"feature-store-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Resolve secret:// config values before anything connects
	var secretsProvider output.SecretsProvider
	switch cfg.Vault.Provider {
	case "keyvault":
		secretsProvider = secrets.NewKeyVaultProvider(&cfg.Vault)
	default:
		secretsProvider = secrets.NewEnvProvider()
	}
	if err := cfg.ResolveSecrets(context.Background(), secretsProvider.GetSecret); err != nil {
		log.Fatalf("resolve secrets: %v", err)
	}

	// Registry database pool
	pool, err := newPool(context.Background(), cfg.Database)
	if err != nil {
		log.Fatalf("registry database: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	log.Info("registry database ready")

	// Warehouse pool. Without explicit warehouse config the registry
	// database doubles as the offline store.
	warehousePool := pool
	if cfg.Warehouse.Configured() {
		warehousePool, err = newPool(context.Background(), cfg.Warehouse)
		if err != nil {
			log.Fatalf("warehouse database: %v", err)
		}
		defer warehousePool.Close()
		log.Info("warehouse database ready")
	}

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports - Repositories)
	entityRepo := postgres.NewEntityRepository(pool)
	sourceRepo := postgres.NewDataSourceRepository(pool)
	viewRepo := postgres.NewFeatureViewRepository(pool)
	serviceRepo := postgres.NewFeatureServiceRepository(pool)
	modelRepo := postgres.NewModelRepository(pool)
	versionRepo := postgres.NewVersionRepository(pool)
	endpointRepo := postgres.NewEndpointRepository(pool)

	offlineStore := postgres.NewOfflineStore(warehousePool)

	// Online Store (Redis or DynamoDB - based on config)
	var onlineStore output.OnlineStore
	switch cfg.Online.Provider {
	case "dynamo":
		onlineStore, err = ddb.NewOnlineStore(context.Background(),
			cfg.Online.Dynamo.AccessKey, cfg.Online.Dynamo.SecretKey,
			cfg.Online.Dynamo.Region, cfg.Online.Dynamo.Table)
		if err != nil {
			log.Fatalf("create dynamo online store: %v", err)
		}
		log.Info("online store: dynamodb")
	default:
		onlineStore, err = redis.NewOnlineStore(cfg.Online.Redis.Addr, cfg.Online.Redis.Password, cfg.Online.Redis.DB)
		if err != nil {
			log.Fatalf("create redis online store: %v", err)
		}
		log.Info("online store: redis")
	}

	// Artifact Store
	artifactStore, err := localfs.NewArtifactStore(cfg.Artifacts.Root)
	if err != nil {
		log.Fatalf("create artifact store: %v", err)
	}

	// Tracking Client (Optional - based on config)
	trackingClient := mlflow.NewTrackingClient(&cfg.Tracking)
	if trackingClient.IsAvailable() {
		log.Info("tracking client initialized")
	} else {
		log.Info("tracking integration disabled")
	}

	// Serving Client (Optional - based on config)
	var servingClient output.ServingClient
	if cfg.Serving.Enabled {
		client, err := kserve.NewServingClient(&cfg.Serving)
		if err != nil {
			log.Warnf("serving client init failed (continuing without serving integration): %v", err)
		} else {
			servingClient = client
			log.Info("serving client initialized")
		}
	} else {
		log.Info("serving integration disabled")
	}

	predictor := kserve.NewPredictor(30 * time.Second)

	// Metrics
	m := metrics.New()

	// Core Services (Application Layer)
	registrySvc := services.NewRegistryService(entityRepo, sourceRepo, viewRepo, serviceRepo)
	historicalSvc := services.NewHistoricalService(registrySvc, offlineStore, m)
	onlineSvc := services.NewOnlineService(registrySvc, onlineStore, m)
	materializeSvc := services.NewMaterializeService(registrySvc, viewRepo, offlineStore, onlineStore, m)
	trainingSvc := services.NewTrainingService(registrySvc, historicalSvc, modelRepo, versionRepo, artifactStore, trackingClient, m)
	modelSvc := services.NewModelService(modelRepo, versionRepo)
	deploySvc := services.NewDeploymentService(endpointRepo, modelRepo, versionRepo, servingClient)
	predictionSvc := services.NewPredictionService(onlineSvc, endpointRepo, modelRepo, versionRepo, artifactStore, predictor)

	// Feature repository file: apply at startup, optionally keep
	// watching for edits
	if cfg.Registry.RepoPath != "" {
		applier := featurerepo.NewApplier(registrySvc)
		if _, err := applier.ApplyFile(context.Background(), cfg.Registry.RepoPath, cfg.Registry.Project); err != nil {
			log.Warnf("feature repo apply failed (continuing with stored registry): %v", err)
		}
		if cfg.Registry.Watch {
			watcher, err := featurerepo.NewWatcher(cfg.Registry.RepoPath, cfg.Registry.Project, applier)
			if err != nil {
				log.Warnf("feature repo watcher init failed: %v", err)
			} else {
				defer watcher.Close()
			}
		}
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(registrySvc, historicalSvc, onlineSvc, materializeSvc, trainingSvc, modelSvc, deploySvc, predictionSvc, cfg.Registry.Project)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Metrics(m), gin.Recovery())

	api := router.Group("/api/v1/feature-store")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
