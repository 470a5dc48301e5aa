package container

import (
	"fmt"

	"retrievalagent/database"
	"retrievalagent/websearch"
	"retrievalagent/websearch/providers"
)

// openPlacesDB открывает каталог SQLite
func openPlacesDB(path string) (*database.PlacesDB, error) {
	db, err := database.NewPlacesDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open places catalog %s: %w", path, err)
	}
	return db, nil
}

// initProviders создает источники мест и роутер с учетом надежности
func (c *Container) initProviders() error {
	cfg := c.Config.Providers
	var routed []websearch.RoutedProvider

	if cfg.Google.Enabled {
		c.Google = providers.NewGoogleProvider(providers.GoogleConfig{
			APIKey:    cfg.Google.APIKey,
			BaseURL:   cfg.Google.BaseURL,
			Region:    cfg.Google.Region,
			Timeout:   cfg.Google.Timeout,
			RateLimit: cfg.Google.RateLimit,
			PageSize:  cfg.Google.PageSize,
		})
		routed = append(routed, websearch.RoutedProvider{Provider: c.Google, Priority: cfg.Google.Priority})
	}

	if c.PlacesDB != nil {
		c.Catalog = providers.NewCatalogProvider(c.PlacesDB, cfg.Catalog.Limit)
		routed = append(routed, websearch.RoutedProvider{Provider: c.Catalog, Priority: cfg.Catalog.Priority})
	}

	if cfg.Elastic.Enabled {
		elastic, err := providers.NewElasticProvider(providers.ElasticConfig{
			URL:      cfg.Elastic.URL,
			Index:    cfg.Elastic.Index,
			PageSize: cfg.Elastic.PageSize,
			Logger:   c.Logger,
		})
		if err != nil {
			return err
		}
		c.Elastic = elastic
		routed = append(routed, websearch.RoutedProvider{Provider: elastic, Priority: cfg.Elastic.Priority})
	}

	if len(routed) == 0 {
		return fmt.Errorf("no place providers configured")
	}

	c.Reliability = websearch.NewReliabilityManager()
	c.Router = websearch.NewProviderRouter(routed, c.Reliability, websearch.RouterConfig{
		Strategy:    cfg.Strategy,
		MaxAttempts: cfg.MaxAttempts,
	}, c.Logger)
	return nil
}
