package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"retrievalagent/geo"
)

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CatalogPlace место офлайн-каталога
type CatalogPlace struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Kind      string   `json:"kind"`
	Category  string   `json:"category"`
	Types     []string `json:"types"`
	Rating    float64  `json:"rating"`
	Address   string   `json:"address,omitempty"`
}

// NearbyQuery параметры поиска мест вокруг точки
type NearbyQuery struct {
	Category  string
	Center    geo.Point
	RadiusKm  float64
	MinRating float64
	Limit     int
}

// PlacesDB обертка для работы с каталогом мест в SQLite
type PlacesDB struct {
	conn *sql.DB
}

// NewPlacesDB создает новое подключение к каталогу мест
func NewPlacesDB(dbPath string) (*PlacesDB, error) {
	config := DBConfig{}

	// Для in-memory SQLite требуется ровно одно соединение,
	// иначе каждое новое соединение получит пустую БД.
	if isInMemoryDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewPlacesDBWithConfig(dbPath, config)
}

// NewPlacesDBWithConfig создает подключение к каталогу с конфигурацией пула
func NewPlacesDBWithConfig(dbPath string, config DBConfig) (*PlacesDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open places database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite плохо справляется с большим количеством одновременных соединений
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping places database: %w", err)
	}

	if err := InitPlacesSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize places schema: %w", err)
	}

	return &PlacesDB{conn: conn}, nil
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// Close закрывает подключение
func (db *PlacesDB) Close() error {
	return db.conn.Close()
}

// UpsertPlaces сохраняет места одной транзакцией и возвращает число записей
func (db *PlacesDB) UpsertPlaces(ctx context.Context, places []CatalogPlace) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_places (place_id, name, latitude, longitude, kind, category, types, rating, address, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(place_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			kind = excluded.kind,
			category = excluded.category,
			types = excluded.types,
			rating = excluded.rating,
			address = excluded.address,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, p := range places {
		if strings.TrimSpace(p.PlaceID) == "" {
			continue
		}
		typesJSON, err := json.Marshal(nonNilStrings(p.Types))
		if err != nil {
			return 0, fmt.Errorf("failed to encode types for %s: %w", p.PlaceID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.PlaceID, p.Name, p.Latitude, p.Longitude,
			strings.ToLower(p.Kind), strings.ToLower(p.Category),
			string(typesJSON), p.Rating, p.Address,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert place %s: %w", p.PlaceID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

// SearchNearby возвращает места категории в радиусе от точки.
// Порядок: рейтинг по убыванию, затем place_id.
func (db *PlacesDB) SearchNearby(ctx context.Context, q NearbyQuery) ([]CatalogPlace, error) {
	category := strings.ToLower(strings.TrimSpace(q.Category))

	// Грубый отбор по ограничивающему прямоугольнику, точный по гаверсинусу
	dLat := q.RadiusKm / 111.0
	cosLat := math.Cos(q.Center.Latitude * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := q.RadiusKm / (111.32 * cosLat)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT place_id, name, latitude, longitude, kind, category, types, rating, COALESCE(address, '')
		FROM catalog_places
		WHERE (category = ? OR types LIKE ? ESCAPE '\')
		  AND rating >= ?
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
		ORDER BY rating DESC, place_id ASC`,
		category, typePattern(category), q.MinRating,
		q.Center.Latitude-dLat, q.Center.Latitude+dLat,
		q.Center.Longitude-dLng, q.Center.Longitude+dLng,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby places: %w", err)
	}
	defer rows.Close()

	var result []CatalogPlace
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		if geo.HaversineKm(q.Center, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}) > q.RadiusKm {
			continue
		}
		result = append(result, p)
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nearby places: %w", err)
	}
	return result, nil
}

// GetPlace возвращает место по идентификатору
func (db *PlacesDB) GetPlace(ctx context.Context, placeID string) (*CatalogPlace, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT place_id, name, latitude, longitude, kind, category, types, rating, COALESCE(address, '')
		FROM catalog_places WHERE place_id = ?`, placeID)

	p, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// typePattern шаблон LIKE для точного типа в JSON-массиве types
func typePattern(category string) string {
	return `%"` + likeEscaper.Replace(category) + `"%`
}

// HasCategory сообщает, есть ли в каталоге места категории
func (db *PlacesDB) HasCategory(ctx context.Context, category string) (bool, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	var exists int
	err := db.conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM catalog_places WHERE category = ? OR types LIKE ? ESCAPE '\')`,
		category, typePattern(category)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return exists == 1, nil
}

// Categories возвращает список категорий каталога
func (db *PlacesDB) Categories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT category FROM catalog_places ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AllPlaces возвращает все места каталога, упорядоченные по place_id
func (db *PlacesDB) AllPlaces(ctx context.Context) ([]CatalogPlace, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT place_id, name, latitude, longitude, kind, category, types, rating, COALESCE(address, '')
		FROM catalog_places ORDER BY place_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	var out []CatalogPlace
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count возвращает число мест в каталоге
func (db *PlacesDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_places`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlace(row rowScanner) (CatalogPlace, error) {
	var p CatalogPlace
	var typesJSON string
	if err := row.Scan(&p.PlaceID, &p.Name, &p.Latitude, &p.Longitude, &p.Kind, &p.Category, &typesJSON, &p.Rating, &p.Address); err != nil {
		if err == sql.ErrNoRows {
			return p, err
		}
		return p, fmt.Errorf("failed to scan place: %w", err)
	}
	if err := json.Unmarshal([]byte(typesJSON), &p.Types); err != nil {
		return p, fmt.Errorf("failed to decode types for %s: %w", p.PlaceID, err)
	}
	return p, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
