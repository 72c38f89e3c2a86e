package utils

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionPoolConfig holds configuration for HTTP connection pooling
type ConnectionPoolConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
}

// DefaultConnectionPoolConfig returns default connection pool configuration
func DefaultConnectionPoolConfig() *ConnectionPoolConfig {
	return &ConnectionPoolConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
	}
}

// ConnectionPoolStats holds statistics about connection pool usage
type ConnectionPoolStats struct {
	TotalRequests  int64     `json:"total_requests"`
	FailedRequests int64     `json:"failed_requests"`
	AverageLatency float64   `json:"average_latency_ms"`
	LastUsed       time.Time `json:"last_used"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConnectionPool is a shared, instrumented HTTP client for one upstream
type ConnectionPool struct {
	client    *http.Client
	transport *http.Transport

	totalRequests  int64
	failedRequests int64
	totalLatencyMs int64
	lastUsed       atomic.Value
	createdAt      time.Time
}

var (
	poolsMap   = make(map[string]*ConnectionPool)
	poolsMutex sync.Mutex
)

// NewConnectionPool creates a new connection pool with the given configuration.
// The client has no overall timeout; callers bound requests with a context.
func NewConnectionPool(config *ConnectionPoolConfig) *ConnectionPool {
	if config == nil {
		config = DefaultConnectionPoolConfig()
	}

	dialer := &net.Dialer{
		Timeout:   config.DialTimeout,
		KeepAlive: config.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
	}

	pool := &ConnectionPool{
		transport: transport,
		createdAt: time.Now(),
	}
	pool.lastUsed.Store(time.Time{})
	pool.client = &http.Client{Transport: &instrumentedTransport{base: transport, pool: pool}}

	return pool
}

// GetConnectionPool returns a named connection pool, creating it if it doesn't exist
func GetConnectionPool(name string, config *ConnectionPoolConfig) *ConnectionPool {
	poolsMutex.Lock()
	defer poolsMutex.Unlock()

	if pool, exists := poolsMap[name]; exists {
		return pool
	}

	pool := NewConnectionPool(config)
	poolsMap[name] = pool
	return pool
}

// OpenAIConnectionPool returns the pool used for review provider calls
func OpenAIConnectionPool() *ConnectionPool {
	return GetConnectionPool("openai", &ConnectionPoolConfig{
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second, // model responses are slow
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
	})
}

// GetClient returns the pooled HTTP client
func (cp *ConnectionPool) GetClient() *http.Client {
	return cp.client
}

// GetStats returns a snapshot of pool usage
func (cp *ConnectionPool) GetStats() ConnectionPoolStats {
	total := atomic.LoadInt64(&cp.totalRequests)
	stats := ConnectionPoolStats{
		TotalRequests:  total,
		FailedRequests: atomic.LoadInt64(&cp.failedRequests),
		LastUsed:       cp.lastUsed.Load().(time.Time),
		CreatedAt:      cp.createdAt,
	}
	if total > 0 {
		stats.AverageLatency = float64(atomic.LoadInt64(&cp.totalLatencyMs)) / float64(total)
	}
	return stats
}

// GetAllPoolStats returns the stats of every named pool
func GetAllPoolStats() map[string]ConnectionPoolStats {
	poolsMutex.Lock()
	defer poolsMutex.Unlock()

	stats := make(map[string]ConnectionPoolStats, len(poolsMap))
	for name, pool := range poolsMap {
		stats[name] = pool.GetStats()
	}
	return stats
}

// CloseIdleConnections closes idle keep-alive connections
func (cp *ConnectionPool) CloseIdleConnections() {
	cp.transport.CloseIdleConnections()
}

// CloseAllPools closes idle connections of every named pool
func CloseAllPools() {
	poolsMutex.Lock()
	defer poolsMutex.Unlock()

	for _, pool := range poolsMap {
		pool.CloseIdleConnections()
	}
}

type instrumentedTransport struct {
	base http.RoundTripper
	pool *ConnectionPool
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	atomic.AddInt64(&t.pool.totalRequests, 1)
	atomic.AddInt64(&t.pool.totalLatencyMs, time.Since(start).Milliseconds())
	t.pool.lastUsed.Store(time.Now())
	if err != nil || (resp != nil && resp.StatusCode >= 500) {
		atomic.AddInt64(&t.pool.failedRequests, 1)
	}

	return resp, err
}
