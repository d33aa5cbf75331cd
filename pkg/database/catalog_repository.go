package database

import (
	"encoding/json"
	"fmt"
)

// CatalogRepository reads and writes the catalog_games table. It never
// runs popularity preprocessing itself — that stays in internal/catalog
// so there is exactly one code path that can produce a malformed-catalog
// error, whether the records came from here or from an in-memory slice.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository wraps db for catalog access.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CatalogEntry is the plain shape a repository read returns, mirroring
// catalog.Record's fields without internal/catalog importing gorm.
type CatalogEntry struct {
	Name        string
	MinPlayers  int
	MaxPlayers  int
	MinPlaytime int
	MaxPlaytime int
	Popularity  map[string]float64
}

// LoadAll returns every known game. The schedule handler calls it on each
// request that omits its own catalog.
func (r *CatalogRepository) LoadAll() ([]CatalogEntry, error) {
	var rows []CatalogGameRow
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog_games: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(rows))
	for _, row := range rows {
		pop := map[string]float64{}
		if row.Popularity != "" {
			if err := json.Unmarshal([]byte(row.Popularity), &pop); err != nil {
				return nil, fmt.Errorf("catalog_games: decoding popularity for %q: %w", row.Name, err)
			}
		}
		entries = append(entries, CatalogEntry{
			Name:        row.Name,
			MinPlayers:  row.MinPlayers,
			MaxPlayers:  row.MaxPlayers,
			MinPlaytime: row.MinPlaytime,
			MaxPlaytime: row.MaxPlaytime,
			Popularity:  pop,
		})
	}
	return entries, nil
}

// Upsert writes or replaces one game's catalog row.
func (r *CatalogRepository) Upsert(entry CatalogEntry) error {
	data, err := json.Marshal(entry.Popularity)
	if err != nil {
		return fmt.Errorf("catalog_games: encoding popularity for %q: %w", entry.Name, err)
	}
	row := CatalogGameRow{
		Name:        entry.Name,
		MinPlayers:  entry.MinPlayers,
		MaxPlayers:  entry.MaxPlayers,
		MinPlaytime: entry.MinPlaytime,
		MaxPlaytime: entry.MaxPlaytime,
		Popularity:  string(data),
	}
	return r.db.Save(&row).Error
}
