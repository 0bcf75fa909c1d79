package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

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
	"feature-store-service/internal/metrics"
)

// platform wires the core services against the configured backends.
// The online store connects lazily so registry-only commands work
// without it.
type platform struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	warehousePool *pgxpool.Pool

	registry   *services.RegistryService
	historical *services.HistoricalService
	models     *services.ModelService
	training   *services.TrainingService
	deployment *services.DeploymentService

	onlineStore output.OnlineStore
	online      *services.OnlineService
	materialize *services.MaterializeService
	prediction  *services.PredictionService
	pipeline    *services.PipelineService

	onlineDeps onlineDeps
}

func newPlatform(ctx context.Context) (*platform, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var secretsProvider output.SecretsProvider
	switch cfg.Vault.Provider {
	case "keyvault":
		secretsProvider = secrets.NewKeyVaultProvider(&cfg.Vault)
	default:
		secretsProvider = secrets.NewEnvProvider()
	}
	if err := cfg.ResolveSecrets(ctx, secretsProvider.GetSecret); err != nil {
		return nil, err
	}

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("registry database: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	warehousePool := pool
	if cfg.Warehouse.Configured() {
		warehousePool, err = newPool(ctx, cfg.Warehouse)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("warehouse database: %w", err)
		}
	}

	entityRepo := postgres.NewEntityRepository(pool)
	sourceRepo := postgres.NewDataSourceRepository(pool)
	viewRepo := postgres.NewFeatureViewRepository(pool)
	serviceRepo := postgres.NewFeatureServiceRepository(pool)
	modelRepo := postgres.NewModelRepository(pool)
	versionRepo := postgres.NewVersionRepository(pool)
	endpointRepo := postgres.NewEndpointRepository(pool)
	offlineStore := postgres.NewOfflineStore(warehousePool)

	artifactStore, err := localfs.NewArtifactStore(cfg.Artifacts.Root)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create artifact store: %w", err)
	}

	trackingClient := mlflow.NewTrackingClient(&cfg.Tracking)

	var servingClient output.ServingClient
	if cfg.Serving.Enabled {
		client, err := kserve.NewServingClient(&cfg.Serving)
		if err != nil {
			log.Warnf("serving client init failed (continuing without serving integration): %v", err)
		} else {
			servingClient = client
		}
	}

	m := metrics.New()

	p := &platform{cfg: cfg, pool: pool, warehousePool: warehousePool}
	p.registry = services.NewRegistryService(entityRepo, sourceRepo, viewRepo, serviceRepo)
	p.historical = services.NewHistoricalService(p.registry, offlineStore, m)
	p.models = services.NewModelService(modelRepo, versionRepo)
	p.training = services.NewTrainingService(p.registry, p.historical, modelRepo, versionRepo, artifactStore, trackingClient, m)
	p.deployment = services.NewDeploymentService(endpointRepo, modelRepo, versionRepo, servingClient)

	// Held back for connectOnline
	p.onlineDeps = onlineDeps{
		viewRepo:      viewRepo,
		endpointRepo:  endpointRepo,
		modelRepo:     modelRepo,
		versionRepo:   versionRepo,
		offlineStore:  offlineStore,
		artifactStore: artifactStore,
		metrics:       m,
	}

	return p, nil
}

type onlineDeps struct {
	viewRepo      output.FeatureViewRepository
	endpointRepo  output.EndpointRepository
	modelRepo     output.ModelRepository
	versionRepo   output.VersionRepository
	offlineStore  output.OfflineStore
	artifactStore output.ArtifactStore
	metrics       *metrics.Metrics
}

// connectOnline dials the online store and wires the services that
// need it. Commands touching only the registry or the warehouse never
// call this.
func (p *platform) connectOnline(ctx context.Context) error {
	if p.online != nil {
		return nil
	}

	var err error
	switch p.cfg.Online.Provider {
	case "dynamo":
		p.onlineStore, err = ddb.NewOnlineStore(ctx,
			p.cfg.Online.Dynamo.AccessKey, p.cfg.Online.Dynamo.SecretKey,
			p.cfg.Online.Dynamo.Region, p.cfg.Online.Dynamo.Table)
	default:
		p.onlineStore, err = redis.NewOnlineStore(p.cfg.Online.Redis.Addr, p.cfg.Online.Redis.Password, p.cfg.Online.Redis.DB)
	}
	if err != nil {
		return fmt.Errorf("connect online store: %w", err)
	}

	d := p.onlineDeps
	p.online = services.NewOnlineService(p.registry, p.onlineStore, d.metrics)
	p.materialize = services.NewMaterializeService(p.registry, d.viewRepo, d.offlineStore, p.onlineStore, d.metrics)
	p.prediction = services.NewPredictionService(p.online, d.endpointRepo, d.modelRepo, d.versionRepo, d.artifactStore, kserve.NewPredictor(30*time.Second))
	p.pipeline = services.NewPipelineService(p.registry, p.training, p.materialize, p.deployment, p.prediction)

	return nil
}

func (p *platform) Close() {
	if p.warehousePool != nil && p.warehousePool != p.pool {
		p.warehousePool.Close()
	}
	if p.pool != nil {
		p.pool.Close()
	}
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
