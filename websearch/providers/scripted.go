package providers

import (
	"context"
	"sync"
	"time"

	"retrievalagent/websearch/types"
)

// ScriptStep один заранее заданный ответ провайдера
type ScriptStep struct {
	Venues []types.Venue
	Err    error
}

// ScriptedProvider провайдер с заранее записанными ответами.
// Ответы задаются для пары (категория, кластер) и выдаются по очереди;
// после исчерпания повторяется последний шаг. Используется для
// воспроизводимых прогонов и тестов.
type ScriptedProvider struct {
	name     string
	mu       sync.Mutex
	scripts  map[string][]ScriptStep
	calls    map[string]int
	fallback func(req types.SearchRequest) ([]types.Venue, error)
	total    int
}

var _ types.PlaceProvider = (*ScriptedProvider)(nil)

// NewScriptedProvider создает пустой сценарный провайдер
func NewScriptedProvider(name string) *ScriptedProvider {
	if name == "" {
		name = "scripted"
	}
	return &ScriptedProvider{
		name:    name,
		scripts: make(map[string][]ScriptStep),
		calls:   make(map[string]int),
	}
}

// On задает последовательность ответов для категории и кластера.
// Пустой clusterID соответствует любому кластеру без собственного сценария.
func (p *ScriptedProvider) On(category, clusterID string, steps ...ScriptStep) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[scriptKey(category, clusterID)] = steps
	return p
}

// Default задает ответ для запросов без сценария
func (p *ScriptedProvider) Default(fn func(req types.SearchRequest) ([]types.Venue, error)) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = fn
	return p
}

// Search возвращает следующий шаг сценария
func (p *ScriptedProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.total++
	key := scriptKey(req.Category, req.ClusterID)
	steps, ok := p.scripts[key]
	if !ok {
		key = scriptKey(req.Category, "")
		steps, ok = p.scripts[key]
	}
	if !ok {
		fallback := p.fallback
		p.mu.Unlock()
		if fallback == nil {
			return []types.Venue{}, nil
		}
		return fallback(req)
	}

	n := p.calls[key]
	p.calls[key] = n + 1
	p.mu.Unlock()

	if len(steps) == 0 {
		return []types.Venue{}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	step := steps[n]
	if step.Err != nil {
		return nil, step.Err
	}
	out := make([]types.Venue, len(step.Venues))
	copy(out, step.Venues)
	return out, nil
}

// Calls возвращает число обращений по сценарию категории и кластера
func (p *ScriptedProvider) Calls(category, clusterID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[scriptKey(category, clusterID)]
}

// TotalCalls возвращает общее число обращений
func (p *ScriptedProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// GetName возвращает имя провайдера
func (p *ScriptedProvider) GetName() string {
	return p.name
}

// IsAvailable всегда true
func (p *ScriptedProvider) IsAvailable() bool {
	return true
}

// GetRateLimit без ограничений
func (p *ScriptedProvider) GetRateLimit() time.Duration {
	return 0
}

func scriptKey(category, clusterID string) string {
	return category + "|" + clusterID
}
