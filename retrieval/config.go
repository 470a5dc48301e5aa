package retrieval

import (
	"fmt"
	"strings"

	"retrievalagent/places"
	"retrievalagent/quality"
)

// Config параметры адаптивного цикла поиска
type Config struct {
	MaxIterations  int     `yaml:"max_iterations"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	BalanceFactor  float64 `yaml:"balance_factor"`

	// GlobalRadiiKm шаги глобального радиуса; первый шаг начальный
	GlobalRadiiKm []float64 `yaml:"global_radii_km"`
	// ClusterRadiiKm шаги локального радиуса при перенацеливании кластера
	ClusterRadiiKm []float64 `yaml:"cluster_radii_km"`

	InitialThresholds map[places.Kind]float64 `yaml:"initial_thresholds"`
	ThresholdFloors   map[places.Kind]float64 `yaml:"threshold_floors"`
	ThresholdStep     float64                 `yaml:"threshold_step"`

	Targets quality.TargetPolicy `yaml:"targets"`
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxIterations:  6,
		MaxConcurrency: 4,
		BalanceFactor:  0.5,
		GlobalRadiiKm:  []float64{10, 20, 30, 35},
		ClusterRadiiKm: []float64{5, 15, 25, 35},
		InitialThresholds: map[places.Kind]float64{
			places.KindAttraction: 4.0,
			places.KindFood:       4.5,
		},
		ThresholdFloors: map[places.Kind]float64{
			places.KindAttraction: 3.0,
			places.KindFood:       3.5,
		},
		ThresholdStep: 0.5,
		Targets:       quality.DefaultTargetPolicy(),
	}
}

// withDefaults заполняет незаданные поля значениями по умолчанию
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.BalanceFactor <= 0 {
		c.BalanceFactor = d.BalanceFactor
	}
	if len(c.GlobalRadiiKm) == 0 {
		c.GlobalRadiiKm = d.GlobalRadiiKm
	}
	if len(c.ClusterRadiiKm) == 0 {
		c.ClusterRadiiKm = d.ClusterRadiiKm
	}
	if c.InitialThresholds == nil {
		c.InitialThresholds = d.InitialThresholds
	}
	if c.ThresholdFloors == nil {
		c.ThresholdFloors = d.ThresholdFloors
	}
	if c.ThresholdStep <= 0 {
		c.ThresholdStep = d.ThresholdStep
	}
	if c.Targets.AttractionsPerDay == nil {
		c.Targets = d.Targets
	}
	return c
}

// Validate проверяет конфигурацию и возвращает все найденные проблемы
func (c Config) Validate() error {
	var errs []string

	if c.MaxIterations <= 0 {
		errs = append(errs, "max_iterations must be positive")
	}
	if c.MaxConcurrency <= 0 {
		errs = append(errs, "max_concurrency must be positive")
	}
	if c.BalanceFactor <= 0 || c.BalanceFactor > 1 {
		errs = append(errs, "balance_factor must be in (0, 1]")
	}
	if err := validateSteps("global_radii_km", c.GlobalRadiiKm); err != "" {
		errs = append(errs, err)
	}
	if err := validateSteps("cluster_radii_km", c.ClusterRadiiKm); err != "" {
		errs = append(errs, err)
	}
	if c.ThresholdStep <= 0 {
		errs = append(errs, "threshold_step must be positive")
	}
	for _, kind := range places.Kinds() {
		initial, ok := c.InitialThresholds[kind]
		if !ok {
			errs = append(errs, fmt.Sprintf("initial threshold for %s is missing", kind))
			continue
		}
		if initial < 0 || initial > 5 {
			errs = append(errs, fmt.Sprintf("initial threshold for %s must be in [0, 5]", kind))
		}
		if floor, ok := c.ThresholdFloors[kind]; ok && floor > initial {
			errs = append(errs, fmt.Sprintf("threshold floor for %s exceeds initial threshold", kind))
		}
	}
	if c.Targets.FoodPerDay < 0 {
		errs = append(errs, "food_per_day must not be negative")
	}
	for pace, n := range c.Targets.AttractionsPerDay {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("attractions_per_day for %s must not be negative", pace))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("retrieval config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSteps(name string, steps []float64) string {
	if len(steps) == 0 {
		return name + " must not be empty"
	}
	for i, s := range steps {
		if s <= 0 {
			return name + " must be positive"
		}
		if i > 0 && s <= steps[i-1] {
			return name + " must be strictly increasing"
		}
	}
	return ""
}
