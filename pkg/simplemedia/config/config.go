package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-media/pkg/simplemedia"
	repomemory "github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	repopg "github.com/tendant/simple-media/pkg/simplemedia/repo/postgres"
	fsstorage "github.com/tendant/simple-media/pkg/simplemedia/storage/fs"
	memorystorage "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
	s3storage "github.com/tendant/simple-media/pkg/simplemedia/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		DatabaseType: "memory",
		DefaultDisk:  "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the simple-media service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration. DefaultDisk is the disk tag assigned to media
	// uploaded without an explicit disk.
	DefaultDisk     string
	StorageBackends []StorageBackendConfig

	// Auth: when set, API routes require a JWT signed with this secret and
	// the acting principal is taken from the token's sub claim.
	JWTSecret string

	// Observability
	SentryDSN          string
	EnableEventLogging bool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultDisk {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default disk '%s' not found in configured storage backends", c.DefaultDisk)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (simplemedia.Service, error) {
	var options []simplemedia.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, err
	}
	options = append(options, simplemedia.WithRepository(repo))

	for _, backendCfg := range c.StorageBackends {
		store, err := buildBlobStore(backendCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %q: %w", backendCfg.Name, err)
		}
		options = append(options, simplemedia.WithBlobStore(backendCfg.Name, store))
	}

	if c.EnableEventLogging {
		options = append(options, simplemedia.WithEventSink(simplemedia.NewSlogEventSink(nil)))
	}

	return simplemedia.New(options...)
}

func (c *ServerConfig) buildRepository() (simplemedia.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func buildBlobStore(cfg StorageBackendConfig) (simplemedia.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		baseDir, _ := cfg.Config["base_dir"].(string)
		urlPrefix, _ := cfg.Config["url_prefix"].(string)
		return fsstorage.New(fsstorage.Config{
			BaseDir:   baseDir,
			URLPrefix: urlPrefix,
		})
	case "s3":
		s3cfg := s3storage.Config{
			Region:          stringValue(cfg.Config, "region"),
			Bucket:          stringValue(cfg.Config, "bucket"),
			AccessKeyID:     stringValue(cfg.Config, "access_key_id"),
			SecretAccessKey: stringValue(cfg.Config, "secret_access_key"),
			Endpoint:        stringValue(cfg.Config, "endpoint"),
		}
		if v, ok := cfg.Config["use_path_style"].(bool); ok {
			s3cfg.UsePathStyle = v
		}
		if v, ok := cfg.Config["create_bucket_if_not_exist"].(bool); ok {
			s3cfg.CreateBucketIfNotExist = v
		}
		if v, ok := cfg.Config["presign_duration"].(int); ok {
			s3cfg.PresignDuration = v
		}
		return s3storage.New(s3cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", cfg.Type)
	}
}

func stringValue(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
