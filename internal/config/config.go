package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Warehouse DatabaseConfig
	Online    OnlineConfig
	Tracking  TrackingConfig
	Serving   ServingConfig
	Vault     VaultConfig
	Registry  RegistryConfig
	Artifacts ArtifactsConfig
	Pipeline  PipelineConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DSN returns the connection string in pgx keyword form
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Configured reports whether this database was explicitly configured.
// An unconfigured warehouse falls back to the registry database.
func (c DatabaseConfig) Configured() bool {
	return c.Host != ""
}

// OnlineConfig selects and configures the online store backend
type OnlineConfig struct {
	Provider string // "redis" or "dynamo"
	Redis    RedisConfig
	Dynamo   DynamoConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DynamoConfig struct {
	Region    string
	Table     string
	AccessKey string
	SecretKey string
}

type TrackingConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Experiment string
	Timeout    time.Duration
}

type ServingConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	RuntimeImage   string
	IngressDomain  string
}

type VaultConfig struct {
	Provider string // "env" or "keyvault"
	URL      string
	Token    string
	Timeout  time.Duration
}

type RegistryConfig struct {
	Project  string
	RepoPath string
	Watch    bool
}

type ArtifactsConfig struct {
	Root string
}

type PipelineConfig struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "feature_store")
	v.SetDefault("DATABASE_SSL_MODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("DATABASE_MIN_CONNS", 2)
	v.SetDefault("DATABASE_MAX_CONN_LIFETIME", "1h")

	v.SetDefault("WAREHOUSE_HOST", "")
	v.SetDefault("WAREHOUSE_PORT", 5432)
	v.SetDefault("WAREHOUSE_USER", "postgres")
	v.SetDefault("WAREHOUSE_PASSWORD", "postgres")
	v.SetDefault("WAREHOUSE_NAME", "warehouse")
	v.SetDefault("WAREHOUSE_SSL_MODE", "disable")
	v.SetDefault("WAREHOUSE_MAX_CONNS", 5)
	v.SetDefault("WAREHOUSE_MIN_CONNS", 1)
	v.SetDefault("WAREHOUSE_MAX_CONN_LIFETIME", "1h")

	v.SetDefault("ONLINE_PROVIDER", "redis")
	v.SetDefault("ONLINE_REDIS_ADDR", "localhost:6379")
	v.SetDefault("ONLINE_REDIS_PASSWORD", "")
	v.SetDefault("ONLINE_REDIS_DB", 0)
	v.SetDefault("ONLINE_DYNAMO_REGION", "us-east-1")
	v.SetDefault("ONLINE_DYNAMO_TABLE", "feature-store-online")
	v.SetDefault("ONLINE_DYNAMO_ACCESS_KEY", "")
	v.SetDefault("ONLINE_DYNAMO_SECRET_KEY", "")

	v.SetDefault("TRACKING_ENABLED", false)
	v.SetDefault("TRACKING_URL", "http://localhost:5000")
	v.SetDefault("TRACKING_TOKEN", "")
	v.SetDefault("TRACKING_EXPERIMENT", "feature-store")
	v.SetDefault("TRACKING_TIMEOUT", "30s")

	v.SetDefault("SERVING_ENABLED", false)
	v.SetDefault("SERVING_IN_CLUSTER", false)
	v.SetDefault("SERVING_KUBECONFIG", "")
	v.SetDefault("SERVING_NAMESPACE", "default")
	v.SetDefault("SERVING_RUNTIME_IMAGE", "")
	v.SetDefault("SERVING_INGRESS_DOMAIN", "")

	v.SetDefault("VAULT_PROVIDER", "env")
	v.SetDefault("VAULT_URL", "")
	v.SetDefault("VAULT_TOKEN", "")
	v.SetDefault("VAULT_TIMEOUT", "10s")

	v.SetDefault("REGISTRY_PROJECT", "default")
	v.SetDefault("REGISTRY_REPO_PATH", "")
	v.SetDefault("REGISTRY_WATCH", false)

	v.SetDefault("ARTIFACTS_ROOT", "./artifacts")

	v.SetDefault("PIPELINE_WAIT_TIMEOUT", "5m")
	v.SetDefault("PIPELINE_POLL_INTERVAL", "5s")

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSL_MODE"),
			MaxConns:        int32(v.GetInt("DATABASE_MAX_CONNS")),
			MinConns:        int32(v.GetInt("DATABASE_MIN_CONNS")),
			MaxConnLifetime: duration(v, "DATABASE_MAX_CONN_LIFETIME", time.Hour),
		},
		Warehouse: DatabaseConfig{
			Host:            v.GetString("WAREHOUSE_HOST"),
			Port:            v.GetInt("WAREHOUSE_PORT"),
			User:            v.GetString("WAREHOUSE_USER"),
			Password:        v.GetString("WAREHOUSE_PASSWORD"),
			Name:            v.GetString("WAREHOUSE_NAME"),
			SSLMode:         v.GetString("WAREHOUSE_SSL_MODE"),
			MaxConns:        int32(v.GetInt("WAREHOUSE_MAX_CONNS")),
			MinConns:        int32(v.GetInt("WAREHOUSE_MIN_CONNS")),
			MaxConnLifetime: duration(v, "WAREHOUSE_MAX_CONN_LIFETIME", time.Hour),
		},
		Online: OnlineConfig{
			Provider: v.GetString("ONLINE_PROVIDER"),
			Redis: RedisConfig{
				Addr:     v.GetString("ONLINE_REDIS_ADDR"),
				Password: v.GetString("ONLINE_REDIS_PASSWORD"),
				DB:       v.GetInt("ONLINE_REDIS_DB"),
			},
			Dynamo: DynamoConfig{
				Region:    v.GetString("ONLINE_DYNAMO_REGION"),
				Table:     v.GetString("ONLINE_DYNAMO_TABLE"),
				AccessKey: v.GetString("ONLINE_DYNAMO_ACCESS_KEY"),
				SecretKey: v.GetString("ONLINE_DYNAMO_SECRET_KEY"),
			},
		},
		Tracking: TrackingConfig{
			Enabled:    v.GetBool("TRACKING_ENABLED"),
			URL:        v.GetString("TRACKING_URL"),
			Token:      v.GetString("TRACKING_TOKEN"),
			Experiment: v.GetString("TRACKING_EXPERIMENT"),
			Timeout:    duration(v, "TRACKING_TIMEOUT", 30*time.Second),
		},
		Serving: ServingConfig{
			Enabled:        v.GetBool("SERVING_ENABLED"),
			InCluster:      v.GetBool("SERVING_IN_CLUSTER"),
			KubeConfigPath: v.GetString("SERVING_KUBECONFIG"),
			Namespace:      v.GetString("SERVING_NAMESPACE"),
			RuntimeImage:   v.GetString("SERVING_RUNTIME_IMAGE"),
			IngressDomain:  v.GetString("SERVING_INGRESS_DOMAIN"),
		},
		Vault: VaultConfig{
			Provider: v.GetString("VAULT_PROVIDER"),
			URL:      v.GetString("VAULT_URL"),
			Token:    v.GetString("VAULT_TOKEN"),
			Timeout:  duration(v, "VAULT_TIMEOUT", 10*time.Second),
		},
		Registry: RegistryConfig{
			Project:  v.GetString("REGISTRY_PROJECT"),
			RepoPath: v.GetString("REGISTRY_REPO_PATH"),
			Watch:    v.GetBool("REGISTRY_WATCH"),
		},
		Artifacts: ArtifactsConfig{
			Root: v.GetString("ARTIFACTS_ROOT"),
		},
		Pipeline: PipelineConfig{
			WaitTimeout:  duration(v, "PIPELINE_WAIT_TIMEOUT", 5*time.Minute),
			PollInterval: duration(v, "PIPELINE_POLL_INTERVAL", 5*time.Second),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

// secretPrefix marks config values to be resolved through the secrets
// provider at startup, e.g. "secret://warehouse-password"
const secretPrefix = "secret://"

// ResolveSecrets replaces every secret:// value with the result of the
// resolver. Values without the prefix are left untouched.
func (c *Config) ResolveSecrets(ctx context.Context, resolve func(context.Context, string) (string, error)) error {
	fields := []*string{
		&c.Database.Password,
		&c.Warehouse.Password,
		&c.Online.Redis.Password,
		&c.Online.Dynamo.SecretKey,
		&c.Tracking.Token,
	}
	for _, field := range fields {
		if !strings.HasPrefix(*field, secretPrefix) {
			continue
		}
		name := strings.TrimPrefix(*field, secretPrefix)
		value, err := resolve(ctx, name)
		if err != nil {
			return fmt.Errorf("resolve secret %s: %w", name, err)
		}
		*field = value
	}
	return nil
}
