package websearch

import (
	"time"
)

// ProviderStats статистика провайдера
type ProviderStats struct {
	ProviderName      string     `json:"provider_name"`
	RequestsTotal     int64      `json:"requests_total"`
	RequestsSuccess   int64      `json:"requests_success"`
	RequestsFailed    int64      `json:"requests_failed"`
	FailureRate       float64    `json:"failure_rate"`
	AvgResponseTimeMs int64      `json:"avg_response_time_ms"`
	LastSuccess       *time.Time `json:"last_success,omitempty"`
	LastFailure       *time.Time `json:"last_failure,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReliabilityManagerInterface интерфейс для учета надежности провайдеров
type ReliabilityManagerInterface interface {
	// RecordSuccessWithTime записывает успешный запрос с временем ответа
	RecordSuccessWithTime(providerName string, responseTime time.Duration)

	// RecordFailureWithError записывает неуспешный запрос с ошибкой
	RecordFailureWithError(providerName string, err error)

	// GetStats возвращает копию статистики провайдера
	GetStats(providerName string) (ProviderStats, bool)

	// GetAllStats возвращает статистику всех провайдеров, упорядоченную по имени
	GetAllStats() []ProviderStats

	// GetWeight возвращает вес провайдера для выбора
	GetWeight(providerName string, basePriority int) float64
}
