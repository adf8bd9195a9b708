package webproxy

import (
	"os"
	"time"

	"github.com/always-cache/webproxy/cache"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file.
type FileConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queueSize"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	Cache       CacheConfig   `yaml:"cache"`
	// Listen address of the admin API, disabled if empty.
	Admin string `yaml:"admin"`
	// Journal database file, "memory" (the default) for an in-memory db, "off" to disable.
	Journal string `yaml:"journal"`
}

type CacheConfig struct {
	Capacity      int `yaml:"capacity"`
	MaxObjectSize int `yaml:"maxObjectSize"`
}

func GetConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}

// NewCache creates the object cache described by the file, with defaults for unset values.
func (c FileConfig) NewCache() *cache.ObjectCache {
	return cache.NewObjectCache(c.Cache.Capacity, c.Cache.MaxObjectSize)
}

// ProxyConfig returns the proxy configuration for the file's settings, using objectCache as the cache.
func (c FileConfig) ProxyConfig(objectCache *cache.ObjectCache) Config {
	return Config{
		Cache:       objectCache,
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		DialTimeout: c.DialTimeout,
	}
}
