// Package config loads aptiq's layered configuration: built-in defaults,
// then an optional YAML file, then APTIQ_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/abhisek/aptiq/internal/batch"
	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/logging"
	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/ratelimit"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys are
	// separated by a double underscore: APTIQ_RATELIMIT__LIMIT=5.
	EnvPrefix = "APTIQ_"

	// ConfigPathEnvVar names the YAML file used when no path is given.
	ConfigPathEnvVar = "APTIQ_CONFIG"

	CacheMemory = "memory"
	CacheBadger = "badger"
)

// Config is the complete application configuration.
type Config struct {
	Log          logging.Config     `koanf:"log"`
	DB           DBConfig           `koanf:"db"`
	LLM          llm.Config         `koanf:"llm"`
	RateLimit    RateLimitConfig    `koanf:"ratelimit"`
	Cache        CacheConfig        `koanf:"cache"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Batch        BatchConfig        `koanf:"batch"`
	Questions    QuestionsConfig    `koanf:"questions"`

	// SweepInterval is how often expired cache entries and idle
	// rate-limit identities are purged.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

type DBConfig struct {
	// Path of the SQLite file. Empty resolves via store.DefaultDBPath.
	Path string `koanf:"path"`
}

type RateLimitConfig struct {
	Window  time.Duration `koanf:"window" validate:"gt=0"`
	Limit   int           `koanf:"limit" validate:"gt=0"`
	IdleTTL time.Duration `koanf:"idle_ttl" validate:"gte=0"`
}

// Limiter converts to the limiter's own config.
func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Window: c.Window, Limit: c.Limit, IdleTTL: c.IdleTTL}
}

type CacheConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=memory badger"`
	TTL     time.Duration `koanf:"ttl" validate:"gt=0"`
	// Path is the badger directory. Required for the badger backend.
	Path string `koanf:"path" validate:"required_if=Backend badger"`
}

type OrchestratorConfig struct {
	ProviderTimeout time.Duration `koanf:"provider_timeout" validate:"gt=0"`
}

type BatchConfig struct {
	Concurrency int           `koanf:"concurrency" validate:"gte=1,lte=64"`
	ItemTimeout time.Duration `koanf:"item_timeout" validate:"gt=0"`
}

type QuestionsConfig struct {
	// Path of a YAML question bank. Empty uses the stored or seed bank.
	Path string `koanf:"path"`
}

// Default returns the built-in defaults.
func Default() Config {
	rl := ratelimit.DefaultConfig()
	return Config{
		Log: logging.DefaultConfig(),
		LLM: llm.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Window:  rl.Window,
			Limit:   rl.Limit,
			IdleTTL: rl.IdleTTL,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     cache.DefaultTTL,
		},
		Orchestrator: OrchestratorConfig{
			ProviderTimeout: orchestrator.DefaultConfig().ProviderTimeout,
		},
		Batch: BatchConfig{
			Concurrency: batch.DefaultConcurrency,
			ItemTimeout: batch.DefaultItemTimeout,
		},
		SweepInterval: time.Minute,
	}
}

// Load layers defaults, the YAML file at path (or $APTIQ_CONFIG when path
// is empty) and APTIQ_ environment variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps APTIQ_LLM__OPENAI__API_KEY to llm.openai.api_key. Variables
// that are not configuration keys are skipped.
func envKey(s string) string {
	switch s {
	case ConfigPathEnvVar, "APTIQ_DB":
		return ""
	}
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the selected provider's keys.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
