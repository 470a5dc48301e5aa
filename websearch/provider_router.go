package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"retrievalagent/websearch/types"
)

// RouterStrategy стратегия выбора провайдера
type RouterStrategy string

const (
	// StrategyOrdered провайдеры опрашиваются в порядке приоритета
	StrategyOrdered RouterStrategy = "ordered"
	// StrategyRoundRobin поочередный выбор первого провайдера
	StrategyRoundRobin RouterStrategy = "round_robin"
	// StrategyWeighted выбор на основе весов/надежности
	StrategyWeighted RouterStrategy = "weighted"
)

// RouterConfig конфигурация роутера
type RouterConfig struct {
	Strategy    RouterStrategy `json:"strategy" yaml:"strategy"`
	MaxAttempts int            `json:"max_attempts" yaml:"max_attempts"` // 0 - все доступные провайдеры
}

// RoutedProvider провайдер с базовым приоритетом
type RoutedProvider struct {
	Provider types.PlaceProvider
	Priority int
}

// ProviderRouter роутер для выбора и переключения между провайдерами мест.
// Сам реализует types.PlaceProvider, поэтому подставляется в Client.
type ProviderRouter struct {
	providers          []RoutedProvider
	reliabilityManager ReliabilityManagerInterface
	config             RouterConfig
	logger             *slog.Logger
	currentIndex       int
	mu                 sync.Mutex
}

var _ types.PlaceProvider = (*ProviderRouter)(nil)

// NewProviderRouter создает новый роутер провайдеров
func NewProviderRouter(
	providers []RoutedProvider,
	reliabilityManager ReliabilityManagerInterface,
	config RouterConfig,
	logger *slog.Logger,
) *ProviderRouter {
	if config.Strategy == "" {
		config.Strategy = StrategyOrdered
	}
	if logger == nil {
		logger = slog.Default()
	}

	ordered := make([]RoutedProvider, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	return &ProviderRouter{
		providers:          ordered,
		reliabilityManager: reliabilityManager,
		config:             config,
		logger:             logger,
	}
}

// GetName возвращает имя роутера
func (pr *ProviderRouter) GetName() string {
	names := make([]string, 0, len(pr.providers))
	for _, p := range pr.providers {
		names = append(names, p.Provider.GetName())
	}
	return "router(" + strings.Join(names, ",") + ")"
}

// IsAvailable сообщает, есть ли хотя бы один доступный провайдер
func (pr *ProviderRouter) IsAvailable() bool {
	for _, p := range pr.providers {
		if p.Provider.IsAvailable() {
			return true
		}
	}
	return false
}

// GetRateLimit лимиты соблюдают сами провайдеры
func (pr *ProviderRouter) GetRateLimit() time.Duration {
	return 0
}

// Search выполняет поиск с fallback на другие провайдеры при ошибках.
// Если хотя бы один провайдер вернул временную ошибку, итоговая ошибка
// временная, иначе постоянная.
func (pr *ProviderRouter) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	available := make([]RoutedProvider, 0, len(pr.providers))
	for _, p := range pr.providers {
		if p.Provider.IsAvailable() {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return nil, types.NewTransientError("router", "no providers available", nil)
	}

	selected := pr.selectProviders(available)
	if pr.config.MaxAttempts > 0 && len(selected) > pr.config.MaxAttempts {
		selected = selected[:pr.config.MaxAttempts]
	}

	var lastErr error
	anyTransient := false

	for _, p := range selected {
		name := p.Provider.GetName()
		startTime := time.Now()
		venues, err := p.Provider.Search(ctx, req)
		responseTime := time.Since(startTime)

		if err == nil {
			if pr.reliabilityManager != nil {
				pr.reliabilityManager.RecordSuccessWithTime(name, responseTime)
			}
			for i := range venues {
				if venues[i].Source == "" {
					venues[i].Source = name
				}
			}
			return venues, nil
		}

		if pr.reliabilityManager != nil {
			pr.reliabilityManager.RecordFailureWithError(name, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pr.logger.Debug("provider failed, trying next",
			"provider", name,
			"category", req.Category,
			"error", err)

		if !types.IsPermanent(err) {
			anyTransient = true
		}
		lastErr = err
	}

	if anyTransient {
		return nil, types.NewTransientError("router", "all providers failed", lastErr)
	}
	return nil, types.NewPermanentError("router", "all providers rejected request", lastErr)
}

// selectProviders упорядочивает провайдеров согласно стратегии
func (pr *ProviderRouter) selectProviders(providers []RoutedProvider) []RoutedProvider {
	switch pr.config.Strategy {
	case StrategyRoundRobin:
		return pr.selectRoundRobin(providers)
	case StrategyWeighted:
		return pr.selectWeighted(providers)
	default:
		return providers
	}
}

// selectRoundRobin сдвигает стартового провайдера при каждом вызове
func (pr *ProviderRouter) selectRoundRobin(providers []RoutedProvider) []RoutedProvider {
	pr.mu.Lock()
	start := pr.currentIndex % len(providers)
	pr.currentIndex = (pr.currentIndex + 1) % len(providers)
	pr.mu.Unlock()

	selected := make([]RoutedProvider, 0, len(providers))
	for i := 0; i < len(providers); i++ {
		selected = append(selected, providers[(start+i)%len(providers)])
	}
	return selected
}

// selectWeighted сортирует провайдеров по весу надежности.
// Провайдеры с нулевым весом уходят в конец списка.
func (pr *ProviderRouter) selectWeighted(providers []RoutedProvider) []RoutedProvider {
	if pr.reliabilityManager == nil {
		return providers
	}

	type weighted struct {
		p      RoutedProvider
		weight float64
	}
	items := make([]weighted, 0, len(providers))
	for _, p := range providers {
		items = append(items, weighted{p: p, weight: pr.reliabilityManager.GetWeight(p.Provider.GetName(), p.Priority)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].weight > items[j].weight })

	selected := make([]RoutedProvider, 0, len(items))
	for _, it := range items {
		selected = append(selected, it.p)
	}
	return selected
}

// Stats возвращает статистику провайдеров
func (pr *ProviderRouter) Stats() []ProviderStats {
	if pr.reliabilityManager == nil {
		return []ProviderStats{}
	}
	return pr.reliabilityManager.GetAllStats()
}

// String для логов
func (pr *ProviderRouter) String() string {
	return fmt.Sprintf("%s strategy=%s", pr.GetName(), pr.config.Strategy)
}
