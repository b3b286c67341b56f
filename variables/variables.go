package variables

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// Sources describes where variables come from. Build
// layers them, lowest precedence first: environment,
// stamp files, .env files, then KEY=VALUE lists.
type Sources struct {
	// EnvFiles are .env files, later files win.
	EnvFiles []string

	// Pairs are comma-separated KEY=VALUE lists.
	Pairs []string

	// StampInfoFiles are workspace status files.
	StampInfoFiles []string

	// InheritEnv keeps the process environment as the
	// base layer even when explicit sources are given.
	InheritEnv bool
}

// explicit reports whether any source besides the
// environment is configured.
func (src Sources) explicit() bool {
	return len(src.EnvFiles) > 0 ||
		len(src.Pairs) > 0 ||
		len(src.StampInfoFiles) > 0
}

// Build assembles the variable map. environ is the
// process environment in os.Environ form; it is used when
// InheritEnv is set or when no explicit source is given.
func (src Sources) Build(
	environ []string,
) (map[string]string, error) {
	const errCtx = "building variables"

	var layers []map[string]string

	if src.InheritEnv || !src.explicit() {
		layers = append(layers, FromEnviron(environ))
	}

	stamps, err := LoadStamps(src.StampInfoFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	layers = append(layers, stamps)

	dotEnv, err := LoadDotEnv(src.EnvFiles...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	layers = append(layers, dotEnv)

	for _, pa := range src.Pairs {
		pairs, err := ParsePairs(pa)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		layers = append(layers, pairs)
	}

	return Merge(layers...), nil
}

// FromEnviron converts "KEY=VALUE" entries into a map.
// The first "=" separates key and value; entries without
// one are skipped. A later duplicate wins.
func FromEnviron(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))

	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if ok && key != "" {
			vars[key] = val
		}
	}

	return vars
}

// LoadDotEnv reads .env files. A key defined in several
// files takes the value from the last one. No paths
// yields an empty map rather than reading ./.env.
func LoadDotEnv(
	paths ...string,
) (map[string]string, error) {
	const errCtx = "loading env files"

	if len(paths) == 0 {
		return map[string]string{}, nil
	}

	vars, err := godotenv.Read(paths...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return vars, nil
}

// ParsePairs parses a comma-separated list of KEY=VALUE
// pairs. Keys and values are trimmed. A pair without "="
// or with an empty key is an error. An empty string
// yields an empty map.
func ParsePairs(s string) (map[string]string, error) {
	const errCtx = "parsing variable pairs"

	vars := make(map[string]string)

	if strings.TrimSpace(s) == "" {
		return vars, nil
	}

	for _, pair := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf(
				"%s: missing value in %q", errCtx, pair,
			)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf(
				"%s: missing key in %q", errCtx, pair,
			)
		}

		vars[key] = strings.TrimSpace(val)
	}

	return vars, nil
}

// Merge combines layers into a new map. Later layers
// override earlier ones; nil layers are ignored.
func Merge(layers ...map[string]string) map[string]string {
	size := 0
	for _, la := range layers {
		size += len(la)
	}

	merged := make(map[string]string, size)

	for _, la := range layers {
		for key, val := range la {
			merged[key] = val
		}
	}

	return merged
}
