package regextract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/coregex/meta"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/engine"
	"github.com/coregx/regextract/kernel"
)

// InvalidPatternPolicy decides whether a pattern that fails to compile or
// match aborts the invocation or yields "" for the affected rows.
type InvalidPatternPolicy = kernel.Policy

const (
	// PolicyError aborts the invocation (default).
	PolicyError = kernel.PolicyError
	// PolicyEmptyString emits "" for the affected rows.
	PolicyEmptyString = kernel.PolicyEmptyString
)

// EnvPrefix prefixes the environment variables read by LoadConfig.
const EnvPrefix = "REGEXTRACT_"

// Config controls an Extractor.
//
// Example:
//
//	cfg := regextract.DefaultConfig()
//	cfg.CacheSize = 256
//	cfg.InvalidPattern = regextract.PolicyEmptyString
type Config struct {
	// CacheSize is the per-row pattern cache capacity.
	// Zero is clamped to 1.
	// Default: 64
	CacheSize int

	// InvalidPattern is the invalid pattern policy.
	// Default: PolicyError
	InvalidPattern InvalidPatternPolicy

	// Backend selects the regex engine.
	// Default: engine.Linear
	Backend engine.Kind

	// MatchTimeout bounds one match on the expressive backend.
	// Zero means no limit.
	MatchTimeout time.Duration

	// Linear tunes the coregex backend.
	Linear meta.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheSize:      cache.DefaultCapacity,
		InvalidPattern: PolicyError,
		Backend:        engine.Linear,
		Linear:         meta.DefaultConfig(),
	}
}

// Validate checks that every field is in range.
func (c Config) Validate() error {
	if c.CacheSize < 0 {
		return &ConfigError{Field: "CacheSize", Message: "must not be negative"}
	}
	if !c.InvalidPattern.Valid() {
		return &ConfigError{Field: "InvalidPattern", Message: fmt.Sprintf("unknown policy %d", int(c.InvalidPattern))}
	}
	switch c.Backend {
	case engine.Linear:
		if err := c.Linear.Validate(); err != nil {
			return &ConfigError{Field: "Linear", Message: err.Error()}
		}
	case engine.Expressive:
	default:
		return &ConfigError{Field: "Backend", Message: "unknown backend " + c.Backend.String()}
	}
	if c.MatchTimeout < 0 {
		return &ConfigError{Field: "MatchTimeout", Message: "must not be negative"}
	}
	return nil
}

func (c Config) engineOptions() engine.Options {
	return engine.Options{Linear: c.Linear, MatchTimeout: c.MatchTimeout}
}

// LoadConfig builds a Config from defaults, then the optional YAML document,
// then environment variables.
//
// Recognized keys (YAML / environment):
//
//	cache_size       REGEXTRACT_CACHE_SIZE
//	invalid_pattern  REGEXTRACT_INVALID_PATTERN   error | empty_string
//	backend          REGEXTRACT_BACKEND           linear | expressive
//	match_timeout    REGEXTRACT_MATCH_TIMEOUT     Go duration, e.g. 250ms
func LoadConfig(yamlDoc []byte) (Config, error) {
	k := koanf.New(".")

	if len(yamlDoc) > 0 {
		if err := k.Load(rawbytes.Provider(yamlDoc), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("regexp_extract: load config: %w", err)
		}
	}

	// REGEXTRACT_CACHE_SIZE -> cache_size
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("regexp_extract: load environment: %w", err)
	}

	cfg := DefaultConfig()
	if k.Exists("cache_size") {
		n, err := strconv.Atoi(strings.TrimSpace(k.String("cache_size")))
		if err != nil {
			return Config{}, &ConfigError{Field: "CacheSize", Message: err.Error()}
		}
		cfg.CacheSize = n
	}
	if k.Exists("invalid_pattern") {
		p, err := kernel.ParsePolicy(k.String("invalid_pattern"))
		if err != nil {
			return Config{}, &ConfigError{Field: "InvalidPattern", Message: err.Error()}
		}
		cfg.InvalidPattern = p
	}
	if k.Exists("backend") {
		b, err := engine.ParseKind(k.String("backend"))
		if err != nil {
			return Config{}, &ConfigError{Field: "Backend", Message: err.Error()}
		}
		cfg.Backend = b
	}
	if k.Exists("match_timeout") {
		d, err := time.ParseDuration(k.String("match_timeout"))
		if err != nil {
			return Config{}, &ConfigError{Field: "MatchTimeout", Message: err.Error()}
		}
		cfg.MatchTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
