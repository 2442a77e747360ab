package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
)

// Cache key constants for consistent key generation across the application
const (
	defaultKeyPrefix      = "hydra4go"
	cacheKeySeparator     = ":"
	cacheDependencyPrefix = "deps"
)

// Stored values start with one header byte describing their encoding
const (
	encodingRaw  byte = 0x00
	encodingGzip byte = 0x01
)

// Manager manages Redis connections and cache operations
type Manager struct {
	config  *Config
	client  redis.UniversalClient
	metrics *Metrics
}

// NewManager creates a new Redis cache manager
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	manager := &Manager{
		config:  config,
		metrics: NewMetrics(),
	}

	// Initialize Redis client based on configuration
	manager.initializeClient()

	return manager, nil
}

// NewManagerWithClient wraps an existing client, e.g. one shared with other components
func NewManagerWithClient(config *Config, client redis.UniversalClient) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	return &Manager{config: config, client: client, metrics: NewMetrics()}, nil
}

// initializeClient sets up the Redis client based on configuration
func (m *Manager) initializeClient() {
	if !m.config.Enabled {
		return // Skip initialization if cache is disabled
	}

	if m.config.IsClusterMode() {
		m.client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           m.config.Cluster.Addresses,
			Username:        m.config.Cluster.Username,
			Password:        m.config.Cluster.Password,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
		return
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:            m.config.GetAddr(),
		Password:        m.config.Password,
		DB:              m.config.Database,
		PoolSize:        m.config.PoolSize,
		MinIdleConns:    m.config.MinIdleConns,
		ConnMaxLifetime: m.config.MaxConnAge,
		PoolTimeout:     m.config.PoolTimeout,
		ConnMaxIdleTime: m.config.IdleTimeout,
		ReadTimeout:     m.config.ReadTimeout,
		WriteTimeout:    m.config.WriteTimeout,
		DialTimeout:     m.config.DialTimeout,
	})
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Close closes the Redis connection
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Ping tests the Redis connection
// Returns nil if cache is disabled (not an error condition)
func (m *Manager) Ping(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// checkClient validates that cache is enabled and client is initialized
func (m *Manager) checkClient() error {
	if !m.config.Enabled {
		return ErrCacheDisabled
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}
	return nil
}

// Key joins parts under the configured prefix: "hydra4go:Product:load:42"
func (m *Manager) Key(parts ...string) string {
	var b bytes.Buffer
	b.WriteString(m.config.prefix())
	for _, p := range parts {
		b.WriteString(cacheKeySeparator)
		b.WriteString(p)
	}
	return b.String()
}

// dependencyKey names the set of cache keys that depend on one entity: "hydra4go:deps:products:42"
func (m *Manager) dependencyKey(entityType string, entityID interface{}) string {
	return m.Key(cacheDependencyPrefix, entityType, fmt.Sprintf("%v", entityID))
}

// ============================================================================
// VALUES
// ============================================================================

// Get retrieves a value from cache, decompressing it if needed
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := m.client.Get(ctx, key).Bytes()
	m.metrics.RecordGet(time.Since(start))

	if errors.Is(err, redis.Nil) {
		m.metrics.RecordCacheMiss()
		return nil, ErrKeyNotFound
	}
	if err != nil {
		m.metrics.RecordCacheError()
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	value, err := decodeValue(data)
	if err != nil {
		m.metrics.RecordCacheError()
		return nil, err
	}
	m.metrics.RecordCacheHit()
	return value, nil
}

// Set stores a value in cache with the default TTL
func (m *Manager) Set(ctx context.Context, key string, value []byte) error {
	return m.SetWithTTL(ctx, key, value, m.config.DefaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (m *Manager) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	data, err := m.encodeValue(value)
	if err != nil {
		return err
	}

	start := time.Now()
	err = m.client.Set(ctx, key, data, ttl).Err()
	m.metrics.RecordSet(time.Since(start))
	return err
}

// Delete removes keys from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if err := m.checkClient(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	start := time.Now()
	err := m.client.Del(ctx, keys...).Err()
	m.metrics.RecordDelete(time.Since(start))
	return err
}

// ============================================================================
// DEPENDENCIES
// ============================================================================

// SetWithDependencies stores a value and registers it under every entity it was built from.
// dependencies: map[table] -> []primary keys
func (m *Manager) SetWithDependencies(ctx context.Context, cacheKey string, value []byte, dependencies map[string][]interface{}) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	data, err := m.encodeValue(value)
	if err != nil {
		return err
	}

	// Dependency sets outlive the values they point to
	depTTL := m.config.DefaultTTL * 2

	start := time.Now()
	_, err = m.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cacheKey, data, m.config.DefaultTTL)
		for entityType, ids := range dependencies {
			for _, id := range ids {
				depKey := m.dependencyKey(entityType, id)
				pipe.SAdd(ctx, depKey, cacheKey)
				pipe.Expire(ctx, depKey, depTTL)
				m.metrics.RecordDependency()
			}
		}
		return nil
	})
	m.metrics.RecordSet(time.Since(start))
	return err
}

// GetDependencies returns all cache keys that depend on an entity
func (m *Manager) GetDependencies(ctx context.Context, entityType string, entityID interface{}) ([]string, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	keys, err := m.client.SMembers(ctx, m.dependencyKey(entityType, entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	return keys, err
}

// InvalidateEntityDependencies clears all caches that depend on a specific entity
func (m *Manager) InvalidateEntityDependencies(ctx context.Context, entityType string, entityID interface{}) error {
	dependentKeys, err := m.GetDependencies(ctx, entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to get dependencies: %w", err)
	}

	// The dependency set goes together with the keys it lists
	keys := append(dependentKeys, m.dependencyKey(entityType, entityID))
	if err := m.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate %s %v: %w", entityType, entityID, err)
	}
	m.metrics.RecordInvalidation()
	return nil
}

// InvalidatePattern removes keys matching a pattern using SCAN instead of KEYS
// SCAN is non-blocking and production-safe, unlike KEYS which blocks the Redis server
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	var cursor uint64
	const scanBatchSize = 100

	for {
		batch, next, err := m.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys with pattern %s: %w", pattern, err)
		}
		if len(batch) > 0 {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete batch: %w", err)
			}
			m.metrics.RecordInvalidation()
		}

		// cursor == 0 means we've iterated through all keys
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ============================================================================
// ENCODING
// ============================================================================

// encodeValue prefixes value with its encoding, compressing above the threshold
func (m *Manager) encodeValue(value []byte) ([]byte, error) {
	threshold := m.config.CompressThreshold
	if threshold > 0 && len(value) > threshold {
		compressed, err := compressData(value)
		if err != nil {
			return nil, fmt.Errorf("failed to compress value: %w", err)
		}
		// Use compressed version only if it's smaller
		if len(compressed) < len(value) {
			m.metrics.RecordCompression(uint64(len(value) - len(compressed)))
			return append([]byte{encodingGzip}, compressed...), nil
		}
	}
	return append([]byte{encodingRaw}, value...), nil
}

// decodeValue strips the encoding header and decompresses if needed
func decodeValue(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCorruptValue
	}
	switch data[0] {
	case encodingRaw:
		return data[1:], nil
	case encodingGzip:
		return decompressData(data[1:])
	default:
		return nil, fmt.Errorf("%w: header %#x", ErrCorruptValue, data[0])
	}
}

// compressData compresses data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressData decompresses gzip data
func decompressData(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// ============================================================================
// METRICS
// ============================================================================

// GetMetrics returns current cache performance metrics
func (m *Manager) GetMetrics() MetricsSnapshot {
	if m.metrics == nil {
		return MetricsSnapshot{}
	}
	return m.metrics.GetSnapshot()
}

// Collector returns a Prometheus collector over the manager's metrics
func (m *Manager) Collector() *Collector {
	return NewCollector(m.metrics)
}

// ResetMetrics resets all performance metrics counters
func (m *Manager) ResetMetrics() {
	if m.metrics != nil {
		m.metrics.Reset()
	}
}
