package websearch

import (
	"sort"
	"sync"
	"time"
)

// ReliabilityManager управляет статистикой надежности провайдеров.
// Живет столько же, сколько провайдеры, и разделяется между запусками;
// на результаты поиска не влияет, только на порядок выбора провайдеров.
type ReliabilityManager struct {
	mu    sync.Mutex
	stats map[string]*ProviderStats
	now   func() time.Time
}

// NewReliabilityManager создает новый менеджер надежности
func NewReliabilityManager() *ReliabilityManager {
	return &ReliabilityManager{
		stats: make(map[string]*ProviderStats),
		now:   time.Now,
	}
}

// RecordSuccessWithTime записывает успешный запрос с временем ответа
func (rm *ReliabilityManager) RecordSuccessWithTime(providerName string, responseTime time.Duration) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	stats := rm.getOrCreateStats(providerName)
	stats.RequestsTotal++
	stats.RequestsSuccess++
	now := rm.now()
	stats.LastSuccess = &now
	stats.UpdatedAt = now

	// Скользящее среднее времени ответа
	ms := responseTime.Milliseconds()
	stats.AvgResponseTimeMs = (stats.AvgResponseTimeMs*(stats.RequestsSuccess-1) + ms) / stats.RequestsSuccess
	stats.FailureRate = float64(stats.RequestsFailed) / float64(stats.RequestsTotal)
}

// RecordFailureWithError записывает неуспешный запрос с ошибкой
func (rm *ReliabilityManager) RecordFailureWithError(providerName string, err error) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	stats := rm.getOrCreateStats(providerName)
	stats.RequestsTotal++
	stats.RequestsFailed++
	now := rm.now()
	stats.LastFailure = &now
	stats.UpdatedAt = now
	if err != nil {
		stats.LastError = err.Error()
	}
	stats.FailureRate = float64(stats.RequestsFailed) / float64(stats.RequestsTotal)
}

// GetStats возвращает копию статистики провайдера
func (rm *ReliabilityManager) GetStats(providerName string) (ProviderStats, bool) {
	if rm == nil {
		return ProviderStats{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	stats, ok := rm.stats[providerName]
	if !ok {
		return ProviderStats{}, false
	}
	return *stats, true
}

// GetAllStats возвращает статистику всех провайдеров
func (rm *ReliabilityManager) GetAllStats() []ProviderStats {
	if rm == nil {
		return []ProviderStats{}
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	out := make([]ProviderStats, 0, len(rm.stats))
	for _, s := range rm.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderName < out[j].ProviderName })
	return out
}

// GetWeight вычисляет эффективный вес провайдера на основе его надежности
func (rm *ReliabilityManager) GetWeight(providerName string, basePriority int) float64 {
	stat, ok := rm.GetStats(providerName)
	if !ok || stat.RequestsTotal == 0 {
		return float64(basePriority)
	}

	// Провайдеры с failure_rate >= 0.9 временно исключаются
	if stat.FailureRate >= 0.9 {
		return 0.0
	}

	// Вес = базовый_приоритет * (1 - failure_rate)
	weight := float64(basePriority) * (1.0 - stat.FailureRate)
	if weight < 0 {
		weight = 0
	}
	return weight
}

// getOrCreateStats вызывается под блокировкой
func (rm *ReliabilityManager) getOrCreateStats(providerName string) *ProviderStats {
	if stats, exists := rm.stats[providerName]; exists {
		return stats
	}

	stats := &ProviderStats{
		ProviderName: providerName,
		UpdatedAt:    rm.now(),
	}
	rm.stats[providerName] = stats
	return stats
}
