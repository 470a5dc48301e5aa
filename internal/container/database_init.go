package container

import (
	"context"
	"fmt"
)

// initCatalog открывает офлайн-каталог SQLite
func (c *Container) initCatalog() error {
	cfg := c.Config.Providers.Catalog
	if !cfg.Enabled {
		return nil
	}

	db, err := openPlacesDB(cfg.Path)
	if err != nil {
		return err
	}
	c.PlacesDB = db

	count, err := db.Count(context.Background())
	if err != nil {
		return fmt.Errorf("failed to count catalog places: %w", err)
	}
	if count == 0 {
		c.Logger.Warn("places catalog is empty, run `retrieval catalog import` or `retrieval catalog seed`", "path", cfg.Path)
	} else {
		c.Logger.Info("places catalog opened", "path", cfg.Path, "places", count)
	}
	return nil
}
