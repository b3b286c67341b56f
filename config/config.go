// Package config loads ksubst settings. Layers are applied in order, later
// layers winning: built-in defaults, a YAML config file, KSUBST_* environment
// variables, then explicit overrides (the command-line flags the user set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read from the working directory when no
// config file is named explicitly.
const DefaultFile = ".ksubst.yaml"

// EnvPrefix marks environment variables that configure
// ksubst itself, e.g. KSUBST_PARALLELISM=8.
const EnvPrefix = "KSUBST_"

// Config holds every setting of a run.
type Config struct {
	// Variable sources.
	EnvFiles       []string `koanf:"env_files"`
	EnvVars        []string `koanf:"env_vars"`
	StampInfoFiles []string `koanf:"stamp_info_files"`
	InheritEnv     bool     `koanf:"inherit_env"`

	// Default replaces undefined plain placeholders
	// when set.
	Default *string `koanf:"default"`

	StartTag string `koanf:"start_tag"`
	EndTag   string `koanf:"end_tag"`

	// File selection for recursive runs.
	Include []string `koanf:"include"`
	Exclude []string `koanf:"exclude"`

	Parallelism       int  `koanf:"parallelism"`
	KeepGoing         bool `koanf:"keep_going"`
	ValidateManifests bool `koanf:"validate_manifests"`
	Strict            bool `koanf:"strict"`
	DryRun            bool `koanf:"dry_run"`

	Report       string `koanf:"report"`
	ReportFormat string `koanf:"report_format"`
	LogLevel     string `koanf:"log_level"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"start_tag":   "${",
		"end_tag":     "}",
		"parallelism": 4,
		"report":      "text",
		"log_level":   "warn",
	}
}

// Load builds a Config. path names a YAML config file;
// when empty, DefaultFile is used if it exists. overrides
// is the last layer, keyed like the koanf tags.
func Load(
	path string,
	overrides map[string]interface{},
) (*Config, error) {
	const errCtx = "loading config"

	ko := koanf.New(".")

	if err := ko.Load(
		confmap.Provider(defaults(), "."), nil,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: defaults: %w", errCtx, err,
		)
	}

	cfgPath, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfgPath != "" {
		if err := ko.Load(
			file.Provider(cfgPath), kyaml.Parser(),
		); err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, cfgPath, err,
			)
		}
	}

	if err := ko.Load(
		env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: environment: %w", errCtx, err,
		)
	}

	if len(overrides) > 0 {
		if err := ko.Load(
			confmap.Provider(overrides, "."), nil,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: overrides: %w", errCtx, err,
			)
		}
	}

	var cfg Config

	if err := ko.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &cfg, nil
}

// Validate checks values that cannot be fixed up later.
func (cfg *Config) Validate() error {
	switch cfg.Report {
	case "text", "json":
	default:
		return fmt.Errorf(
			"report must be text or json, got %q",
			cfg.Report,
		)
	}

	if cfg.Parallelism < 1 {
		return fmt.Errorf(
			"parallelism must be at least 1, got %d",
			cfg.Parallelism,
		)
	}

	if cfg.StartTag == "" || cfg.EndTag == "" {
		return errors.New("start_tag and end_tag must not be empty")
	}

	return nil
}

// resolvePath returns the config file to read, or "" for
// none. An explicit path must exist.
func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}

		return path, nil
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	}

	return "", nil
}

// envKeyValue maps KSUBST_ENV_FILES to env_files. An
// empty KSUBST_DEFAULT is ignored; an empty default must
// come from the config file or --default "".
func envKeyValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "default" && value == "" {
		return "", nil
	}

	return key, value
}
