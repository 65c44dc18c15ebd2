// Package config provides configuration loading for the verification service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application, loaded entirely from
// the process environment — there is no config file in this deployment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chain    ChainConfig
	Auth     AuthConfig
	Sweeper  SweeperConfig
	Builder  BuilderConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL string
}

// ChainConfig holds chain-RPC and on-chain verifier addressing configuration.
type ChainConfig struct {
	RPCURL          string
	RPCURLs         []string
	VerifierProgram string
}

// AuthConfig holds the shared-secret used to authenticate privileged webhooks.
type AuthConfig struct {
	Secret string
}

// SweeperConfig holds Fleet Sweeper tuning knobs.
type SweeperConfig struct {
	IntervalSeconds int
	BatchSize       int
	MaxConcurrent   int
}

// BuilderConfig holds the path to the external sandboxed builder tool.
type BuilderConfig struct {
	BinPath string
}

// requiredKeys are env vars without which the process cannot run at all.
// A missing key causes Load to return an error; main exits nonzero on it,
// matching the exit-code contract in spec.md.
var requiredKeys = []string{"DATABASE_URL", "REDIS_URL", "RPC_URL", "AUTH_SECRET"}

// Load reads configuration from the environment. It never reads a config
// file: every setting here is operational, not a tunable the teacher's
// YAML-backed config supported.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range requiredKeys {
		v.BindEnv(key)
	}
	for _, key := range requiredKeys {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("missing required environment variable: %s", key)
		}
	}

	rpcURLs := splitAndTrim(v.GetString("RPC_URLS"))
	if len(rpcURLs) == 0 {
		rpcURLs = []string{v.GetString("RPC_URL")}
	}

	return &Config{
		Server: ServerConfig{
			Port:         v.GetInt("PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Chain: ChainConfig{
			RPCURL:          v.GetString("RPC_URL"),
			RPCURLs:         rpcURLs,
			VerifierProgram: v.GetString("VERIFIER_PROGRAM_ID"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("AUTH_SECRET"),
		},
		Sweeper: SweeperConfig{
			IntervalSeconds: v.GetInt("PROGRAM_STATUS_UPDATE_INTERVAL_SECONDS"),
			BatchSize:       v.GetInt("PROGRAM_STATUS_BATCH_SIZE"),
			MaxConcurrent:   v.GetInt("PROGRAM_STATUS_MAX_CONCURRENT"),
		},
		Builder: BuilderConfig{
			BinPath: v.GetString("BUILDER_BIN"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")

	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30s")

	v.SetDefault("VERIFIER_PROGRAM_ID", "verFKtY359M6pCwJ8cocoocmeJNJ6QMkRvm3QGyR4U5")

	v.SetDefault("PROGRAM_STATUS_UPDATE_INTERVAL_SECONDS", 300)
	v.SetDefault("PROGRAM_STATUS_BATCH_SIZE", 20)
	v.SetDefault("PROGRAM_STATUS_MAX_CONCURRENT", 5)

	v.SetDefault("BUILDER_BIN", "verify-from-repo")
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
