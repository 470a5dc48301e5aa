package database

import (
	"fmt"
	"math"
	"sort"

	"github.com/brianvoe/gofakeit/v6"

	"retrievalagent/geo"
)

// SeedConfig параметры генерации синтетического каталога
type SeedConfig struct {
	Seed             int64
	PlacesPerCluster int
	// Categories категории по типам кандидатов, например "food": {"hawker_centre"}
	Categories       map[string][]string
}

// GenerateCatalog генерирует воспроизводимый синтетический каталог мест
// вокруг центроидов кластеров. Используется для демо и нагрузочных прогонов.
func GenerateCatalog(partition *geo.Partition, config SeedConfig) ([]CatalogPlace, error) {
	if partition == nil {
		return nil, fmt.Errorf("partition is required")
	}
	if config.PlacesPerCluster <= 0 {
		return nil, fmt.Errorf("places per cluster must be positive")
	}
	if len(config.Categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	kinds := make([]string, 0, len(config.Categories))
	for kind := range config.Categories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	faker := gofakeit.New(config.Seed)
	out := make([]CatalogPlace, 0, partition.Len()*config.PlacesPerCluster)

	for _, cluster := range partition.Clusters() {
		for i := 0; i < config.PlacesPerCluster; i++ {
			kind := kinds[i%len(kinds)]
			categories := config.Categories[kind]
			if len(categories) == 0 {
				continue
			}
			category := categories[faker.Number(0, len(categories)-1)]

			// Равномерно по площади круга радиуса кластера
			distance := cluster.RadiusKm * math.Sqrt(faker.Float64Range(0, 1))
			bearing := faker.Float64Range(0, 2*math.Pi)
			point := offset(cluster.Centroid, distance, bearing)

			out = append(out, CatalogPlace{
				PlaceID:   fmt.Sprintf("seed-%s-%03d", cluster.ID, i),
				Name:      fmt.Sprintf("%s %s", faker.Company(), faker.RandomString([]string{"Gardens", "House", "Corner", "Hall", "Point"})),
				Latitude:  math.Round(point.Latitude*1e6) / 1e6,
				Longitude: math.Round(point.Longitude*1e6) / 1e6,
				Kind:      kind,
				Category:  category,
				Types:     []string{category},
				Rating:    math.Round(faker.Float64Range(3.0, 5.0)*10) / 10,
				Address:   faker.Street() + ", Singapore",
			})
		}
	}
	return out, nil
}

// offset сдвигает точку на distanceKm по азимуту bearing (радианы)
func offset(p geo.Point, distanceKm, bearing float64) geo.Point {
	const earthRadiusKm = 6371.0088
	lat1 := p.Latitude * math.Pi / 180
	lng1 := p.Longitude * math.Pi / 180
	d := distanceKm / earthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(math.Sin(bearing)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return geo.Point{Latitude: lat2 * 180 / math.Pi, Longitude: lng2 * 180 / math.Pi}
}
