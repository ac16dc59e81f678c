package panel

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteReadingRepository implements ReadingRepository using SQLite.
//
// SQLite holds the authoritative reading log; the same values may
// additionally be shipped to InfluxDB for dashboards.
type SQLiteReadingRepository struct {
	db *sql.DB
}

// NewSQLiteReadingRepository creates a new sensor reading repository.
func NewSQLiteReadingRepository(db *sql.DB) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db}
}

// Record appends one distance reading.
func (r *SQLiteReadingRepository) Record(ctx context.Context, value float64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sensor_readings (value) VALUES (?)",
		value,
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// List returns recent readings ordered newest first (default 50, max 200).
func (r *SQLiteReadingRepository) List(ctx context.Context, limit int) ([]SensorReading, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, value, created_at
		 FROM sensor_readings
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	readings := make([]SensorReading, 0, limit)
	for rows.Next() {
		var reading SensorReading
		var createdAt string

		if err := rows.Scan(&reading.ID, &reading.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		reading.CreatedAt = timestamp

		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}

	return readings, nil
}

// Stats returns count, average, min and max over all logged readings.
// An empty log yields all zeroes.
func (r *SQLiteReadingRepository) Stats(ctx context.Context) (ReadingStats, error) {
	var stats ReadingStats

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(value), 0),
		        COALESCE(MIN(value), 0),
		        COALESCE(MAX(value), 0)
		 FROM sensor_readings`,
	).Scan(&stats.Count, &stats.Average, &stats.Min, &stats.Max)
	if err != nil {
		return ReadingStats{}, fmt.Errorf("querying reading stats: %w", err)
	}

	return stats, nil
}
