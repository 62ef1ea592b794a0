package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devblok/korures/resource"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const defaultsFile = "koru.env"

// Defaults holds the built-in configuration files.
var Defaults = packr.NewBox("./defaults")

// Configuration defines a global engine configuration setting
type Configuration struct {
	LogLevel  log.Level
	Assets    AssetConfiguration
	Resources ResourceConfiguration
	Metrics   MetricsConfiguration
}

// AssetConfiguration is used to configure where asset data comes from
type AssetConfiguration struct {
	// Directory is searched first, empty disables it
	Directory string

	// Archives are kar files searched after Directory, in order
	Archives []string

	// CacheEntries is the number of small files kept in memory.
	// To disable the cache, set to 0
	CacheEntries int

	// CacheMaxFileSize is the largest file the cache keeps
	CacheMaxFileSize int64
}

// ResourceConfiguration is used to configure the resource manager
type ResourceConfiguration struct {
	TargetState resource.State
	FailFast    bool
}

// MetricsConfiguration is used to configure exported metrics
type MetricsConfiguration struct {
	Namespace string
}

// LoadConfiguration reads the configuration from KORU_* variables.
// envFiles are loaded into the environment first, without overriding
// variables that are already set. Anything unset takes the built-in default.
func LoadConfiguration(envFiles ...string) (Configuration, error) {
	raw, err := Defaults.FindString(defaultsFile)
	if err != nil {
		return Configuration{}, fmt.Errorf("core: reading defaults: %w", err)
	}
	defaults, err := godotenv.Unmarshal(raw)
	if err != nil {
		return Configuration{}, fmt.Errorf("core: parsing defaults: %w", err)
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Configuration{}, fmt.Errorf("core: loading env files: %w", err)
		}
	}
	envy.Reload()

	get := func(key string) string {
		return envy.Get(key, defaults[key])
	}

	var cfg Configuration
	if cfg.LogLevel, err = log.ParseLevel(get("KORU_LOG_LEVEL")); err != nil {
		return cfg, fmt.Errorf("core: KORU_LOG_LEVEL: %w", err)
	}

	cfg.Assets.Directory = get("KORU_ASSET_DIR")
	for _, a := range strings.Split(get("KORU_ARCHIVES"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			cfg.Assets.Archives = append(cfg.Assets.Archives, a)
		}
	}
	if cfg.Assets.CacheEntries, err = strconv.Atoi(get("KORU_CACHE_ENTRIES")); err != nil {
		return cfg, fmt.Errorf("core: KORU_CACHE_ENTRIES: %w", err)
	}
	if cfg.Assets.CacheMaxFileSize, err = strconv.ParseInt(get("KORU_CACHE_MAX_FILE_SIZE"), 10, 64); err != nil {
		return cfg, fmt.Errorf("core: KORU_CACHE_MAX_FILE_SIZE: %w", err)
	}

	if cfg.Resources.TargetState, err = ParseState(get("KORU_TARGET_STATE")); err != nil {
		return cfg, err
	}
	if cfg.Resources.FailFast, err = strconv.ParseBool(get("KORU_FAIL_FAST")); err != nil {
		return cfg, fmt.Errorf("core: KORU_FAIL_FAST: %w", err)
	}

	cfg.Metrics.Namespace = get("KORU_METRICS_NAMESPACE")
	return cfg, nil
}

// ParseState maps a state name to a resource.State.
func ParseState(name string) (resource.State, error) {
	for s := resource.Created; s.Valid(); s++ {
		if s.String() == strings.ToLower(name) {
			return s, nil
		}
	}
	return resource.Created, fmt.Errorf("core: unknown state %q", name)
}
