package enrichment

import (
	"sync"
	"time"
)

// DetailsCache кэш результатов запроса деталей места
type DetailsCache struct {
	config   CacheConfig
	data     map[string]*cacheEntry
	mutex    sync.RWMutex
	stats    CacheStats
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	result    *EnrichmentResult
	timestamp time.Time
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewDetailsCache создает новый кэш
func NewDetailsCache(config CacheConfig) *DetailsCache {
	cache := &DetailsCache{
		config: config,
		data:   make(map[string]*cacheEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	// Запускаем очистку устаревших записей
	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanup()
	}

	return cache
}

// Get возвращает результат из кэша
func (c *DetailsCache) Get(placeID string) (*EnrichmentResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.config.Enabled {
		c.stats.Misses++
		return nil, false
	}

	entry, exists := c.data[placeID]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	// Проверяем TTL
	if c.config.TTL > 0 && c.now().Sub(entry.timestamp) > c.config.TTL {
		delete(c.data, placeID)
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	result := *entry.result
	return &result, true
}

// Set сохраняет успешный результат в кэш
func (c *DetailsCache) Set(placeID string, result *EnrichmentResult) {
	if !c.config.Enabled || result == nil || !result.Success {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := *result
	c.data[placeID] = &cacheEntry{
		result:    &stored,
		timestamp: c.now(),
	}
}

// Clear очищает весь кэш
func (c *DetailsCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
	c.stats = CacheStats{}
}

// GetStats возвращает статистику кэша
func (c *DetailsCache) GetStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// Close останавливает фоновую очистку
func (c *DetailsCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// startCleanup запускает периодическую очистку устаревших записей
func (c *DetailsCache) startCleanup() {
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
func (c *DetailsCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.config.TTL <= 0 {
		return
	}
	now := c.now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.config.TTL {
			delete(c.data, key)
		}
	}
}
