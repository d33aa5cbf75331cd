package database

import "time"

// CatalogGameRow is the persisted form of a catalog.Record (spec.md
// §6): one row per known title, read by the schedule handler as the
// default catalog for any request that omits its own. Popularity is stored as a JSON blob since
// its keys are dynamic player counts, not fixed columns.
type CatalogGameRow struct {
	Name        string `gorm:"primaryKey"`
	MinPlayers  int
	MaxPlayers  int
	MinPlaytime int
	MaxPlaytime int
	Popularity  string `gorm:"type:jsonb"` // JSON-encoded map[string]float64
}

func (CatalogGameRow) TableName() string { return "catalog_games" }

// ScheduleRunRow is an audit record of one completed solve. The full
// per-session seating plan lives in Redis, keyed the same way; this row
// exists for history/metrics, not for replaying a result.
type ScheduleRunRow struct {
	ID          uint `gorm:"primaryKey"`
	RequestHash string
	Status      string
	Objective   float64
	CreatedAt   time.Time
}

func (ScheduleRunRow) TableName() string { return "schedule_runs" }
