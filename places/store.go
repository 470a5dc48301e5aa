package places

import (
	"strings"
	"sync"

	"retrievalagent/geo"
)

// Store накопитель кандидатов одного запуска.
// Ключ дедупликации PlaceID, побеждает первая запись.
type Store struct {
	partition *geo.Partition

	mu        sync.RWMutex
	order     []string
	byID      map[string]Candidate
	byCluster map[string][]string
}

// NewStore создает пустое хранилище для заданного разбиения
func NewStore(partition *geo.Partition) *Store {
	return &Store{
		partition: partition,
		byID:      make(map[string]Candidate),
		byCluster: make(map[string][]string),
	}
}

// Partition возвращает разбиение, по которому назначаются кластеры
func (s *Store) Partition() *geo.Partition {
	return s.partition
}

// Ingest добавляет кандидатов и возвращает число новых записей.
// Кандидаты без PlaceID пропускаются; повторный PlaceID ничего не меняет.
func (s *Store) Ingest(candidates []Candidate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range candidates {
		id := strings.TrimSpace(c.PlaceID)
		if id == "" {
			continue
		}
		if _, exists := s.byID[id]; exists {
			continue
		}

		stored := c.Clone()
		stored.PlaceID = id
		if stored.Tags == nil {
			stored.Tags = []string{}
		}
		// Кластер назначается один раз при добавлении
		stored.ClusterID = s.partition.Nearest(stored.Location).ID

		s.byID[id] = stored
		s.order = append(s.order, id)
		s.byCluster[stored.ClusterID] = append(s.byCluster[stored.ClusterID], id)
		added++
	}
	return added
}

// Get возвращает кандидата по PlaceID
func (s *Store) Get(placeID string) (Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[placeID]
	if !ok {
		return Candidate{}, false
	}
	return c.Clone(), true
}

// Len возвращает количество кандидатов
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All возвращает всех кандидатов в порядке добавления
func (s *Store) All() []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, nil)
}

// ByCluster возвращает кандидатов кластера в порядке добавления
func (s *Store) ByCluster(clusterID string) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byCluster[clusterID], nil)
}

// ByKind возвращает кандидатов заданного типа
func (s *Store) ByKind(kind Kind) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, func(c Candidate) bool { return c.Kind == kind })
}

// ByCategory возвращает кандидатов, у которых категория поиска или один из
// тегов совпадает с category
func (s *Store) ByCategory(category string) []Candidate {
	category = strings.ToLower(strings.TrimSpace(category))

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, func(c Candidate) bool {
		return strings.EqualFold(c.Category, category) || c.HasTag(category)
	})
}

func (s *Store) collect(ids []string, keep func(Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		c := s.byID[id]
		if keep != nil && !keep(c) {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}
