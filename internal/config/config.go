// Package config loads the rb-server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as "15m" in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats d as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Store   StoreConfig   `toml:"store"`
	Blobs   BlobConfig    `toml:"blobs"`
	Limiter LimiterConfig `toml:"limiter"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr    string `toml:"addr"`
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`
	// Plaintext serves without TLS (local dev).
	Plaintext bool `toml:"plaintext"`
	// Reflection registers gRPC server reflection (dev only).
	Reflection bool `toml:"reflection"`
}

type AuthConfig struct {
	JWTKey    string   `toml:"jwt_key"`
	AccessTTL Duration `toml:"access_ttl"`
	// RoleCache is how many identities' roles are cached.
	RoleCache int `toml:"role_cache"`
	// Admins are granted the admin role on startup.
	Admins []string `toml:"admins"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
	DSN     string `toml:"dsn"`
}

type BlobConfig struct {
	Backend       string   `toml:"backend"`
	Bucket        string   `toml:"bucket"`
	Region        string   `toml:"region"`
	Endpoint      string   `toml:"endpoint"`
	AccessKey     string   `toml:"access_key"`
	SecretKey     string   `toml:"secret_key"`
	PublicBaseURL string   `toml:"public_base_url"`
	PresignTTL    Duration `toml:"presign_ttl"`
}

type LimiterConfig struct {
	Window   Duration `toml:"window"`
	MaxFails int      `toml:"max_fails"`
	BlockFor Duration `toml:"block_for"`
	// Size bounds the in-memory limiter.
	Size int `toml:"size"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

// Default returns a configuration for a local in-memory server.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8443"},
		Auth:    AuthConfig{AccessTTL: Duration(time.Hour), RoleCache: 1024},
		Store:   StoreConfig{Backend: BackendMemory},
		Blobs:   BlobConfig{Backend: BackendMemory, PresignTTL: Duration(24 * time.Hour)},
		Limiter: LimiterConfig{Window: Duration(15 * time.Minute), MaxFails: 5, BlockFor: Duration(15 * time.Minute), Size: 10000},
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var problems []error
	if c.Auth.JWTKey == "" {
		problems = append(problems, errors.New("auth.jwt_key is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		problems = append(problems, errors.New("auth.access_ttl must be positive"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.DSN == "" {
			problems = append(problems, errors.New("store.dsn is required for postgres"))
		}
	default:
		problems = append(problems, fmt.Errorf("store.backend %q is unknown", c.Store.Backend))
	}
	switch c.Blobs.Backend {
	case BackendMemory:
	case BackendS3:
		if c.Blobs.Bucket == "" {
			problems = append(problems, errors.New("blobs.bucket is required for s3"))
		}
	default:
		problems = append(problems, fmt.Errorf("blobs.backend %q is unknown", c.Blobs.Backend))
	}
	if !c.Server.Plaintext && (c.Server.TLSCert == "" || c.Server.TLSKey == "") {
		problems = append(problems, errors.New("server.tls_cert and server.tls_key are required unless plaintext"))
	}
	return errors.Join(problems...)
}
