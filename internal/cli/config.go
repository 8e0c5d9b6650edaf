package cli

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"

	"github.com/andreyvit/kvdoc"
)

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config")
	errUnknownStore       = errors.New("unknown store")
	errPathEmpty          = errors.New("path cannot be empty")
	errBadConcurrency     = errors.New("fetch_concurrency cannot be negative")
)

// Config holds all configuration options.
type Config struct {
	Store            string `json:"store"`
	Path             string `json:"path,omitempty"`
	RedisURL         string `json:"redis_url,omitempty"`
	Encoding         string `json:"encoding,omitempty"`
	Verbose          bool   `json:"verbose,omitempty"`
	FetchConcurrency int    `json:"fetch_concurrency,omitempty"`

	// Collections holds field rules per collection, applied by put and
	// update.
	Collections map[string]kvdoc.Rules `json:"collections,omitempty"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string
	Project string
}

const (
	ConfigFileName  = ".kvdoc.json"
	defaultRedisURL = "redis://localhost:6379/0"
)

var storeKinds = []string{"mem", "file", "bolt", "redis", "sqlite"}

func DefaultConfig() Config {
	return Config{
		Store:            "file",
		Encoding:         "json",
		FetchConcurrency: 8,
	}
}

// defaultPath is the data file used by a file-backed store when no path is
// configured.
func defaultPath(store string) string {
	switch store {
	case "file":
		return "kvdoc-data.json"
	case "bolt":
		return "kvdoc.bolt"
	case "sqlite":
		return "kvdoc.sqlite"
	default:
		return ""
	}
}

func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "kvdoc", "config.json")
	}
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "kvdoc", "config.json")
	}
	return ""
}

// LoadConfig resolves configuration with the following precedence (highest
// wins): defaults, global user config, project config (.kvdoc.json in
// workDir, or configPath if given), command-line overrides. Overrides are
// applied only for the keys listed in overridden.
func LoadConfig(workDir, configPath string, overrides Config, overridden map[string]bool, env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()
	var sources ConfigSources

	if path := globalConfigPath(env); path != "" {
		globalCfg, loaded, err := loadConfigFile(path, false)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}
		if loaded {
			sources.Global = path
			cfg = mergeConfig(cfg, globalCfg)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, ConfigFileName), false
	if configPath != "" {
		projectPath, mustExist = resolvePath(workDir, configPath), true
	}
	projectCfg, loaded, err := loadConfigFile(projectPath, mustExist)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}
	if loaded {
		sources.Project = projectPath
		cfg = mergeConfig(cfg, projectCfg)
	}

	if overridden["store"] {
		cfg.Store = overrides.Store
	}
	if overridden["path"] {
		cfg.Path = overrides.Path
		if cfg.Path == "" {
			return Config{}, ConfigSources{}, errPathEmpty
		}
	}
	if overridden["redis-url"] {
		cfg.RedisURL = overrides.RedisURL
	}
	if overridden["encoding"] {
		cfg.Encoding = overrides.Encoding
	}
	if overridden["verbose"] {
		cfg.Verbose = overrides.Verbose
	}
	if overridden["concurrency"] {
		cfg.FetchConcurrency = overrides.FetchConcurrency
	}

	if cfg.Path == "" {
		cfg.Path = defaultPath(cfg.Store)
	}
	if cfg.Store == "redis" && cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.Path != "" {
		cfg.Path = resolvePath(workDir, cfg.Path)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, ConfigSources{}, err
	}
	return cfg, sources, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, true, nil
}

// parseConfig accepts JSON with comments and trailing commas.
func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Store != "" {
		base.Store = overlay.Store
	}
	if overlay.Path != "" {
		base.Path = overlay.Path
	}
	if overlay.RedisURL != "" {
		base.RedisURL = overlay.RedisURL
	}
	if overlay.Encoding != "" {
		base.Encoding = overlay.Encoding
	}
	if overlay.Verbose {
		base.Verbose = true
	}
	if overlay.FetchConcurrency != 0 {
		base.FetchConcurrency = overlay.FetchConcurrency
	}
	if len(overlay.Collections) > 0 {
		merged := make(map[string]kvdoc.Rules, len(base.Collections)+len(overlay.Collections))
		maps.Copy(merged, base.Collections)
		maps.Copy(merged, overlay.Collections)
		base.Collections = merged
	}
	return base
}

func validateConfig(cfg Config) error {
	known := false
	for _, k := range storeKinds {
		if cfg.Store == k {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w %q (valid: %s)", errUnknownStore, cfg.Store, strings.Join(storeKinds, ", "))
	}
	if _, err := kvdoc.ParseEncoding(cfg.Encoding); err != nil {
		return fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	if cfg.FetchConcurrency < 0 {
		return errBadConcurrency
	}
	for name, rules := range cfg.Collections {
		if name == "" || strings.Contains(name, ":") {
			return fmt.Errorf("%w: bad collection name %q", errConfigInvalid, name)
		}
		for field, rule := range rules {
			if !knownFieldTypes[rule.Type] {
				return fmt.Errorf("%w: %s.%s: unknown type %q", errConfigInvalid, name, field, string(rule.Type))
			}
			if rule.Pattern != "" {
				if _, err := regexp.Compile(rule.Pattern); err != nil {
					return fmt.Errorf("%w: %s.%s: %w", errConfigInvalid, name, field, err)
				}
			}
		}
	}
	return nil
}

var knownFieldTypes = map[kvdoc.FieldType]bool{
	kvdoc.AnyType:    true,
	kvdoc.StringType: true,
	kvdoc.NumberType: true,
	kvdoc.IntType:    true,
	kvdoc.BoolType:   true,
	kvdoc.ArrayType:  true,
	kvdoc.ObjectType: true,
}

// schema builds the field rules in collection name order.
func (cfg Config) schema() *kvdoc.Schema {
	if len(cfg.Collections) == 0 {
		return nil
	}
	scm := kvdoc.NewSchema()
	names := make([]string, 0, len(cfg.Collections))
	for name := range cfg.Collections {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		scm.AddCollection(name, cfg.Collections[name])
	}
	return scm
}

func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}

// FormatConfig returns the config as indented JSON.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}
