package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novaindex/internal/btree"
	"github.com/tuannm99/novaindex/internal/bufferpool"
)

const (
	BackendBTree  = "btree"
	BackendMemory = "memory"
)

type NovaIndexConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Dir         string `mapstructure:"dir"`
		Base        string `mapstructure:"base"`
		Backend     string `mapstructure:"backend"`
		CachePages  int    `mapstructure:"cache_pages"`
		CachePolicy string `mapstructure:"cache_policy"`
	} `mapstructure:"storage"`

	BTree struct {
		KeyPolicy  string `mapstructure:"key_policy"`
		DeleteMode string `mapstructure:"delete_mode"`
	} `mapstructure:"btree"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "novaindex")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.base", "index")
	v.SetDefault("storage.backend", BackendBTree)
	v.SetDefault("storage.cache_pages", bufferpool.DefaultCapacity)
	v.SetDefault("storage.cache_policy", string(bufferpool.PolicyClock))
	v.SetDefault("btree.key_policy", btree.KeyTruncate.String())
	v.SetDefault("btree.delete_mode", btree.DeleteRootOnly.String())
	v.SetDefault("log.level", "info")

	// NOVAINDEX_STORAGE_DIR overrides storage.dir and so on.
	v.SetEnvPrefix("NOVAINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the YAML file at path on top of the defaults. An empty
// path yields the defaults plus environment overrides.
func LoadConfig(path string) (*NovaIndexConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg NovaIndexConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *NovaIndexConfig {
	var cfg NovaIndexConfig
	_ = newViper().Unmarshal(&cfg)
	return &cfg
}

func (c *NovaIndexConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendBTree, BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}
	if _, err := bufferpool.ParsePolicy(c.Storage.CachePolicy); err != nil {
		return err
	}
	if _, err := btree.ParseKeyPolicy(c.BTree.KeyPolicy); err != nil {
		return err
	}
	if _, err := btree.ParseDeleteMode(c.BTree.DeleteMode); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// IndexPath is the node file, <dir>/<base>.idx.
func (c *NovaIndexConfig) IndexPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.Base+".idx")
}

// DataPath is the auxiliary data file, <dir>/<base>.dat.
func (c *NovaIndexConfig) DataPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.Base+".dat")
}

// MemoryPath is the dump file of the memory backend.
func (c *NovaIndexConfig) MemoryPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.Base+".mem")
}

// BTreeOptions builds tree options, including a fresh record cache.
func (c *NovaIndexConfig) BTreeOptions() (btree.Options, error) {
	kp, err := btree.ParseKeyPolicy(c.BTree.KeyPolicy)
	if err != nil {
		return btree.Options{}, err
	}
	dm, err := btree.ParseDeleteMode(c.BTree.DeleteMode)
	if err != nil {
		return btree.Options{}, err
	}
	policy, err := bufferpool.ParsePolicy(c.Storage.CachePolicy)
	if err != nil {
		return btree.Options{}, err
	}
	cache, err := bufferpool.NewCache(policy, c.Storage.CachePages)
	if err != nil {
		return btree.Options{}, err
	}
	return btree.Options{
		KeyPolicy:  kp,
		DeleteMode: dm,
		AuxPath:    c.DataPath(),
		Cache:      cache,
	}, nil
}

func (c *NovaIndexConfig) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level: %w", err)
	}
	return lvl, nil
}
