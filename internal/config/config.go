// Package config loads the daemon configuration: yaml file, merged over
// defaults, with PRISM_* environment overrides applied last.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the effective daemon configuration.
type Config struct {
	RPC     RPCConfig
	Storage StorageConfig
	Log     LogConfig
}

type RPCConfig struct {
	Addr             string
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	RateLimitIdleTTL time.Duration
}

type StorageConfig struct {
	DataDir string
	// Passphrase enables at-rest envelope encryption of registry slots when
	// non-empty. Prefer the PRISM_STORE_PASSPHRASE override to the file.
	Passphrase string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | text
}

func Default() Config {
	return Config{
		RPC: RPCConfig{
			Addr:             "127.0.0.1:8877",
			RateLimitEnabled: true,
			RateLimitRPS:     30,
			RateLimitBurst:   60,
			RateLimitIdleTTL: 10 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FileConfig is the yaml shape. Pointer fields distinguish "absent" from a
// zero value so Merge only overrides what the file sets.
type FileConfig struct {
	RPC struct {
		Addr             string   `yaml:"addr"`
		RateLimitEnabled *bool    `yaml:"rateLimitEnabled"`
		RateLimitRPS     *float64 `yaml:"rateLimitRps"`
		RateLimitBurst   *int     `yaml:"rateLimitBurst"`
	} `yaml:"rpc"`
	Storage struct {
		DataDir    string `yaml:"dataDir"`
		Passphrase string `yaml:"passphrase"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFromPath builds the effective config. A missing or unparseable file
// falls back to defaults plus env overrides, matching how the daemon treats
// config as optional.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/routerd.yaml", "routerd.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src FileConfig) {
	if src.RPC.Addr != "" {
		dst.RPC.Addr = src.RPC.Addr
	}
	if src.RPC.RateLimitEnabled != nil {
		dst.RPC.RateLimitEnabled = *src.RPC.RateLimitEnabled
	}
	if src.RPC.RateLimitRPS != nil && *src.RPC.RateLimitRPS > 0 {
		dst.RPC.RateLimitRPS = *src.RPC.RateLimitRPS
	}
	if src.RPC.RateLimitBurst != nil && *src.RPC.RateLimitBurst > 0 {
		dst.RPC.RateLimitBurst = *src.RPC.RateLimitBurst
	}
	if src.Storage.DataDir != "" {
		dst.Storage.DataDir = src.Storage.DataDir
	}
	if src.Storage.Passphrase != "" {
		dst.Storage.Passphrase = src.Storage.Passphrase
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PRISM_RPC_ADDR")); v != "" {
		cfg.RPC.Addr = v
	}
	if v, ok := parseBoolEnv("PRISM_RPC_RATE_LIMIT_ENABLED"); ok {
		cfg.RPC.RateLimitEnabled = v
	}
	if raw := strings.TrimSpace(os.Getenv("PRISM_RPC_RATE_LIMIT_RPS")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			cfg.RPC.RateLimitRPS = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("PRISM_RPC_RATE_LIMIT_BURST")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.RPC.RateLimitBurst = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("PRISM_DATA_DIR")); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("PRISM_STORE_PASSPHRASE")); v != "" {
		cfg.Storage.Passphrase = v
	}
	if v := strings.TrimSpace(os.Getenv("PRISM_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("PRISM_LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
}

func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
