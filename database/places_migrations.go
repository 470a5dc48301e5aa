package database

import (
	"database/sql"
	"fmt"
)

// InitPlacesSchema создает таблицы офлайн-каталога мест
func InitPlacesSchema(db *sql.DB) error {
	// Таблица мест каталога
	createPlacesTable := `
	CREATE TABLE IF NOT EXISTS catalog_places (
		place_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		kind TEXT NOT NULL,
		category TEXT NOT NULL,
		types TEXT NOT NULL DEFAULT '[]',
		rating REAL NOT NULL DEFAULT 0,
		address TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

	createCategoryIndex := `
	CREATE INDEX IF NOT EXISTS idx_catalog_places_category
	ON catalog_places(category)`

	createGeoIndex := `
	CREATE INDEX IF NOT EXISTS idx_catalog_places_geo
	ON catalog_places(latitude, longitude)`

	if _, err := db.Exec(createPlacesTable); err != nil {
		return fmt.Errorf("failed to create catalog_places table: %w", err)
	}

	if _, err := db.Exec(createCategoryIndex); err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}

	if _, err := db.Exec(createGeoIndex); err != nil {
		return fmt.Errorf("failed to create geo index: %w", err)
	}

	return nil
}
