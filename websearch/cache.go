package websearch

import (
	"sync"
	"time"

	"retrievalagent/places"
	"retrievalagent/websearch/types"
)

// CacheConfig конфигурация кэша
type CacheConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	MaxSize         int           `json:"max_size" yaml:"max_size"`
}

// CacheEntry запись в кэше
type CacheEntry struct {
	Response    *types.SearchResponse
	Expiration  time.Time
	AccessCount int64
}

// Cache кэш ответов поиска.
// Хранит только успешные ответы; ошибки не кэшируются.
type Cache struct {
	config *CacheConfig
	data   map[string]*CacheEntry
	mutex  sync.Mutex
	stats  *CacheStats
	stop   chan struct{}
	once   sync.Once
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewCache создает новый кэш
func NewCache(config *CacheConfig) *Cache {
	if config == nil {
		config = &CacheConfig{Enabled: true, TTL: time.Hour}
	}
	cache := &Cache{
		config: config,
		data:   make(map[string]*CacheEntry),
		stats:  &CacheStats{},
		stop:   make(chan struct{}),
	}

	// Запускаем очистку устаревших записей
	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanup()
	}

	return cache
}

// Get возвращает копию ответа из кэша
func (c *Cache) Get(key string) (*types.SearchResponse, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.config.Enabled {
		c.stats.Misses++
		return nil, false
	}

	entry, exists := c.data[key]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if c.config.TTL > 0 && time.Now().After(entry.Expiration) {
		delete(c.data, key)
		c.stats.Misses++
		return nil, false
	}

	entry.AccessCount++
	c.stats.Hits++
	return copyResponse(entry.Response), true
}

// Set сохраняет ответ в кэш
func (c *Cache) Set(key string, response *types.SearchResponse) {
	if !c.config.Enabled || response == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.config.MaxSize > 0 && len(c.data) >= c.config.MaxSize {
		c.evictLRU()
	}

	c.data[key] = &CacheEntry{
		Response:    copyResponse(response),
		Expiration:  time.Now().Add(c.config.TTL),
		AccessCount: 1,
	}
	c.stats.Size = len(c.data)
}

// GetStats возвращает статистику кэша
func (c *Cache) GetStats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := *c.stats
	stats.Size = len(c.data)
	return stats
}

// Close останавливает фоновую очистку и освобождает записи
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]*CacheEntry)
	c.stats.Size = 0
}

// evictLRU удаляет наименее используемую запись.
// При равном счетчике удаляется запись с меньшим ключом.
func (c *Cache) evictLRU() {
	var lruKey string
	var lruCount int64 = -1

	for key, entry := range c.data {
		if lruCount == -1 || entry.AccessCount < lruCount || (entry.AccessCount == lruCount && key < lruKey) {
			lruKey = key
			lruCount = entry.AccessCount
		}
	}

	if lruKey != "" {
		delete(c.data, lruKey)
	}
}

// startCleanup запускает периодическую очистку устаревших записей
func (c *Cache) startCleanup() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup удаляет устаревшие записи
func (c *Cache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.Expiration) {
			delete(c.data, key)
		}
	}
	c.stats.Size = len(c.data)
}

func copyResponse(r *types.SearchResponse) *types.SearchResponse {
	out := *r
	out.Candidates = make([]places.Candidate, len(r.Candidates))
	for i, c := range r.Candidates {
		out.Candidates[i] = c.Clone()
	}
	return &out
}
