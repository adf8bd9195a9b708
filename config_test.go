package webproxy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/always-cache/webproxy/cache"
)

func TestGetConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "proxy.yml")
	err := os.WriteFile(filename, []byte(`
workers: 8
queueSize: 32
dialTimeout: 5s
cache:
  capacity: 20
  maxObjectSize: 2048
admin: 127.0.0.1:9090
journal: memory
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	config, err := GetConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Workers != 8 || config.QueueSize != 32 || config.DialTimeout != 5*time.Second {
		t.Fatalf("Config is %+v", config)
	}
	if config.Admin != "127.0.0.1:9090" || config.Journal != "memory" {
		t.Fatalf("Config is %+v", config)
	}

	c := config.NewCache()
	if c.Capacity() != 20 || c.MaxObjectSize() != 2048 {
		t.Fatalf("Cache is %d slots of %d bytes", c.Capacity(), c.MaxObjectSize())
	}
	p := CreateProxy(config.ProxyConfig(c))
	if p.workers != 8 || p.queueSize != 32 || p.maxObjectSize != 2048 {
		t.Fatalf("Proxy is %+v", p)
	}
}

func TestDefaults(t *testing.T) {
	p := CreateProxy(Config{})
	if p.workers != DefaultWorkers || p.queueSize != DefaultQueueSize {
		t.Fatalf("Workers %d, queue %d", p.workers, p.queueSize)
	}
	if p.maxObjectSize != cache.DefaultMaxObjectSize {
		t.Fatalf("Max object size is %d", p.maxObjectSize)
	}
	oc, ok := p.Cache().(*cache.ObjectCache)
	if !ok || oc.Capacity() != cache.DefaultCapacity {
		t.Fatal("Default cache not created")
	}
}

func TestGetConfigMissingFile(t *testing.T) {
	if _, err := GetConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("Expected error")
	}
}
