package database

import "fmt"

// ScheduleRunRepository writes audit rows to schedule_runs: one row per
// completed solve() call, for history/metrics, not for replaying a result.
type ScheduleRunRepository struct {
	db *DB
}

// NewScheduleRunRepository wraps db for schedule-run history access.
func NewScheduleRunRepository(db *DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

// ScheduleRunRecord is the plain shape a caller records, mirroring
// ScheduleRunRow without the gorm tags.
type ScheduleRunRecord struct {
	RequestHash string
	Status      string
	Objective   float64
}

// Create inserts one audit row for a completed or failed solve.
func (r *ScheduleRunRepository) Create(record ScheduleRunRecord) error {
	row := ScheduleRunRow{
		RequestHash: record.RequestHash,
		Status:      record.Status,
		Objective:   record.Objective,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return fmt.Errorf("schedule_runs: %w", err)
	}
	return nil
}
