package geo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// earthRadiusKm средний радиус Земли
const earthRadiusKm = 6371.0088

// Point географическая точка (WGS 84)
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// IsZero сообщает, что точка не задана
func (p Point) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// Valid проверяет диапазоны широты и долготы
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Cluster ячейка разбиения региона
type Cluster struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Centroid Point   `json:"centroid" yaml:"centroid"`
	RadiusKm float64 `json:"radius_km" yaml:"radius_km"`
}

// Partition фиксированное упорядоченное разбиение региона на кластеры.
// После создания не изменяется; кластеры упорядочены по ID.
type Partition struct {
	clusters []Cluster
	index    map[string]int
}

// NewPartition создает разбиение из набора кластеров
func NewPartition(clusters []Cluster) (*Partition, error) {
	if len(clusters) == 0 {
		return nil, fmt.Errorf("partition requires at least one cluster")
	}

	sorted := make([]Cluster, len(clusters))
	copy(sorted, clusters)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("cluster %d has empty id", i)
		}
		if _, dup := index[c.ID]; dup {
			return nil, fmt.Errorf("duplicate cluster id %q", c.ID)
		}
		if !c.Centroid.Valid() {
			return nil, fmt.Errorf("cluster %q has invalid centroid %+v", c.ID, c.Centroid)
		}
		if c.RadiusKm <= 0 {
			return nil, fmt.Errorf("cluster %q radius must be positive", c.ID)
		}
		index[c.ID] = i
	}

	return &Partition{clusters: sorted, index: index}, nil
}

// Len возвращает количество кластеров
func (p *Partition) Len() int {
	return len(p.clusters)
}

// Clusters возвращает копию упорядоченного списка кластеров
func (p *Partition) Clusters() []Cluster {
	out := make([]Cluster, len(p.clusters))
	copy(out, p.clusters)
	return out
}

// IDs возвращает идентификаторы кластеров в порядке разбиения
func (p *Partition) IDs() []string {
	ids := make([]string, len(p.clusters))
	for i, c := range p.clusters {
		ids[i] = c.ID
	}
	return ids
}

// Get возвращает кластер по идентификатору
func (p *Partition) Get(id string) (Cluster, bool) {
	i, ok := p.index[id]
	if !ok {
		return Cluster{}, false
	}
	return p.clusters[i], true
}

// Nearest возвращает кластер с ближайшим центроидом.
// При равных расстояниях выигрывает кластер с меньшим ID.
func (p *Partition) Nearest(pt Point) Cluster {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range p.clusters {
		d := HaversineKm(pt, c.Centroid)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return p.clusters[best]
}

// HaversineKm расстояние по большому кругу в километрах
func HaversineKm(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
