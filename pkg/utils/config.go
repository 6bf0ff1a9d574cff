package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTIssuer     string        `yaml:"jwt_issuer"`
	JWTDuration   time.Duration `yaml:"jwt_duration"`
	AllowRegister bool          `yaml:"allow_register"`
}

type StoreConfig struct {
	Driver  string `yaml:"driver"` // sqlite | rest
	DBPath  string `yaml:"db_path"`
	RESTURL string `yaml:"rest_url"`
	RESTKey string `yaml:"rest_key"`
}

type BlobConfig struct {
	Driver    string `yaml:"driver"` // local | s3
	LocalDir  string `yaml:"local_dir"`
	PublicURL string `yaml:"public_url"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	AccessKey string `yaml:"access_key"` // empty uses the default AWS chain
	SecretKey string `yaml:"secret_key"`
}

type CatalogConfig struct {
	FetchPageSize    int           `yaml:"fetch_page_size"`
	ImageConcurrency int           `yaml:"image_concurrency"`
	StorageDomains   []string      `yaml:"storage_domains"`
	Debounce         time.Duration `yaml:"debounce"`
	DefaultImage     string        `yaml:"default_image"`
}

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	SyncAddr string `yaml:"sync_addr"`
	LogLevel string `yaml:"log_level"`
	LogDev   bool   `yaml:"log_dev"`

	Store   StoreConfig   `yaml:"store"`
	Blob    BlobConfig    `yaml:"blob"`
	Catalog CatalogConfig `yaml:"catalog"`
	Auth    AuthConfig    `yaml:"auth"`
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		SyncAddr: ":7070",
		LogLevel: "info",
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Blob: BlobConfig{
			Driver:    "local",
			LocalDir:  "data/uploads",
			PublicURL: "/uploads",
			Region:    "us-east-1",
		},
		Catalog: CatalogConfig{
			FetchPageSize:    1000,
			ImageConcurrency: 8,
			StorageDomains:   []string{"supabase.co", "amazonaws.com"},
			Debounce:         500 * time.Millisecond,
			DefaultImage:     "/images/default-specimen.png",
		},
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "petrocore",
			JWTDuration: 24 * time.Hour,
		},
	}
}

// Load builds the config from defaults, then the YAML file named by
// PETRO_CONFIG (if any), then PETRO_* environment variables.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("PETRO_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "PETRO_HTTP_ADDR")
	setString(&c.GRPCAddr, "PETRO_GRPC_ADDR")
	setString(&c.SyncAddr, "PETRO_SYNC_ADDR")
	setString(&c.LogLevel, "PETRO_LOG_LEVEL")

	setString(&c.Store.Driver, "PETRO_STORE_DRIVER")
	setString(&c.Store.DBPath, "PETRO_DB_PATH")
	setString(&c.Store.RESTURL, "PETRO_REST_URL")
	setString(&c.Store.RESTKey, "PETRO_REST_KEY")

	setString(&c.Blob.Driver, "PETRO_BLOB_DRIVER")
	setString(&c.Blob.LocalDir, "PETRO_BLOB_DIR")
	setString(&c.Blob.PublicURL, "PETRO_BLOB_PUBLIC_URL")
	setString(&c.Blob.Bucket, "PETRO_BLOB_S3_BUCKET")
	setString(&c.Blob.Region, "PETRO_BLOB_S3_REGION")
	setString(&c.Blob.Endpoint, "PETRO_BLOB_S3_ENDPOINT")
	setString(&c.Blob.AccessKey, "PETRO_BLOB_S3_ACCESS_KEY")
	setString(&c.Blob.SecretKey, "PETRO_BLOB_S3_SECRET_KEY")

	setString(&c.Auth.JWTSecret, "PETRO_JWT_SECRET")
	setString(&c.Auth.JWTIssuer, "PETRO_JWT_ISSUER")
	setString(&c.Catalog.DefaultImage, "PETRO_DEFAULT_IMAGE")

	if v := os.Getenv("PETRO_STORAGE_DOMAINS"); v != "" {
		c.Catalog.StorageDomains = splitList(v)
	}

	var err error
	if c.LogDev, err = envBool("PETRO_LOG_DEV", c.LogDev); err != nil {
		return err
	}
	if c.Blob.PathStyle, err = envBool("PETRO_BLOB_S3_PATH_STYLE", c.Blob.PathStyle); err != nil {
		return err
	}
	if c.Auth.AllowRegister, err = envBool("PETRO_ALLOW_REGISTER", c.Auth.AllowRegister); err != nil {
		return err
	}
	if c.Catalog.FetchPageSize, err = envInt("PETRO_FETCH_PAGE_SIZE", c.Catalog.FetchPageSize); err != nil {
		return err
	}
	if c.Catalog.ImageConcurrency, err = envInt("PETRO_IMAGE_CONCURRENCY", c.Catalog.ImageConcurrency); err != nil {
		return err
	}
	if c.Catalog.Debounce, err = envDuration("PETRO_DEBOUNCE", c.Catalog.Debounce); err != nil {
		return err
	}

	hours, err := envInt("PETRO_JWT_TTL_HOURS", 0)
	if err != nil {
		return err
	}
	if hours > 0 {
		c.Auth.JWTDuration = time.Duration(hours) * time.Hour
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
	case "rest":
		if c.Store.RESTURL == "" {
			return fmt.Errorf("store driver rest requires PETRO_REST_URL")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case "local":
	case "s3":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob driver s3 requires PETRO_BLOB_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Catalog.FetchPageSize <= 0 {
		return fmt.Errorf("fetch page size must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
