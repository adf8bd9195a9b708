package webproxy

import (
	"context"
	"net"
	"time"

	"github.com/always-cache/webproxy/cache"
	"github.com/always-cache/webproxy/journal"

	"github.com/rs/zerolog"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 16
)

type Config struct {
	// Storage for cached responses.
	// A cache.ObjectCache with default capacity and object size is created if nil.
	Cache cache.CacheProvider
	// Largest response that is saved for caching. Larger responses are still relayed.
	// Taken from the cache if it has a MaxObjectSize method, otherwise defaults to cache.DefaultMaxObjectSize.
	MaxObjectSize int
	// Number of worker goroutines serving connections.
	Workers int
	// Number of accepted connections that may wait for a worker
	// before accepting blocks.
	QueueSize int
	// Timeout for connecting to origins. Zero means no timeout.
	DialTimeout time.Duration
	// Optional function for connecting to origins. Defaults to a net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
	// Optional recorder receiving an entry for each finished transaction.
	Journal journal.Recorder
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Proxy struct {
	cache         cache.CacheProvider
	maxObjectSize int
	workers       int
	queueSize     int
	dial          func(ctx context.Context, network, addr string) (net.Conn, error)
	journal       journal.Recorder
	log           zerolog.Logger
}

// CreateProxy initializes the proxy instance.
// The cache is created here, once, and shared by every worker started by Serve.
func CreateProxy(config Config) *Proxy {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = *config.Logger
	}

	p := &Proxy{
		cache:         config.Cache,
		maxObjectSize: config.MaxObjectSize,
		workers:       config.Workers,
		queueSize:     config.QueueSize,
		dial:          config.Dial,
		journal:       config.Journal,
		log:           logger,
	}

	if p.cache == nil {
		p.cache = cache.NewObjectCache(cache.DefaultCapacity, p.maxObjectSize)
	}
	if sized, ok := p.cache.(interface{ MaxObjectSize() int }); ok {
		p.maxObjectSize = sized.MaxObjectSize()
	}
	if p.maxObjectSize <= 0 {
		p.maxObjectSize = cache.DefaultMaxObjectSize
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.queueSize <= 0 {
		p.queueSize = DefaultQueueSize
	}
	if p.dial == nil {
		dialer := &net.Dialer{Timeout: config.DialTimeout}
		p.dial = dialer.DialContext
	}
	if p.journal == nil {
		p.journal = journal.Discard{}
	}

	return p
}

// Cache returns the cache shared by all workers.
func (p *Proxy) Cache() cache.CacheProvider {
	return p.cache
}
