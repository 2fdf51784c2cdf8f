package config

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pable/go-cs-coach/internal/errs"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EnvPrefix prefixes every environment override. Nesting uses a double underscore:
// CSCOACH_FEATURES__TRADE_WINDOW_SECONDS=2.5.
const EnvPrefix = "CSCOACH_"

// EnvConfigPath names the env var holding an optional config file path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// cosmetic keys may always fall back to defaults, even in strict mode.
var cosmetic = []string{"log_level", "log_file"}

// optional tables may be absent in strict mode; a missing entry is neutral.
var optional = []string{
	"scoring.map_weights.",
	"scoring.map_caps.",
	"mistakes.role_threshold_scale.",
}

// Options selects config sources.
type Options struct {
	// Path of a YAML file. Empty falls back to $CSCOACH_CONFIG.
	Path string
	// Strict skips the embedded defaults: every correctness key must be supplied.
	Strict bool
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytes provider does not support Read")
}

// New returns the documented defaults.
func New() *Config {
	k := koanf.New(".")
	if err := k.Load(bytesProvider(defaultsYAML), yaml.Parser()); err != nil {
		panic(fmt.Sprintf("parse embedded defaults: %v", err))
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		panic(fmt.Sprintf("decode embedded defaults: %v", err))
	}
	return &cfg
}

// Load builds a Config by layering sources. Order of precedence (low -> high):
//  1. embedded defaults (skipped in strict mode)
//  2. YAML file from opts.Path or $CSCOACH_CONFIG
//  3. env (prefix CSCOACH_)
//
// The result is validated; any failure wraps errs.ErrConfiguration.
func Load(_ context.Context, opts Options) (*Config, error) {
	defaults := koanf.New(".")
	if err := defaults.Load(bytesProvider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, loadErr("defaults", err)
	}

	k := koanf.New(".")
	if !opts.Strict {
		if err := k.Merge(defaults); err != nil {
			return nil, loadErr("merge defaults", err)
		}
	} else {
		// Cosmetic values keep their defaults.
		for _, key := range cosmetic {
			if err := k.Set(key, defaults.Get(key)); err != nil {
				return nil, loadErr(key, err)
			}
		}
	}

	path := opts.Path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigPath {
			return ""
		}
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr("env", err)
	}

	if opts.Strict {
		if err := missingKeys(defaults, k).asError(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadErr("decode", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadErr(what string, err error) error {
	return fmt.Errorf("%w: %w: %s: %w", errs.ErrConfiguration, ErrLoadConfig, what, err)
}

func missingKeys(defaults, loaded *koanf.Koanf) ValidationErrors {
	var out ValidationErrors
	keys := defaults.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		if isOptional(key) {
			continue
		}
		if !loaded.Exists(key) {
			out = append(out, ValidationError{Key: key, Message: "required key is missing"})
		}
	}
	return out
}

func isOptional(key string) bool {
	for _, c := range cosmetic {
		if key == c {
			return true
		}
	}
	for _, prefix := range optional {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Fingerprint is a stable digest of every correctness value. Two configs with the same
// fingerprint produce identical analyses.
func (c *Config) Fingerprint() string {
	cp := *c
	cp.LogLevel, cp.LogFile = "", ""
	b, err := json.Marshal(cp)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(b))
}
