package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RequestMetric records one call to the recipe API.
type RequestMetric struct {
	Operation string
	Status    int
	Failed    bool
	Latency   time.Duration
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m RequestMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	failed := 0
	if m.Failed {
		failed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_metrics (operation, status, failed, latency_ms, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.Operation, m.Status, failed, m.Latency.Milliseconds(), ts.Unix())
	if err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", m.Operation, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DailyUsage represents request totals for a single day.
type DailyUsage struct {
	Date         string
	Requests     int
	Failures     int
	AvgLatencyMS float64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d', timestamp, 'unixepoch') AS day,
		       COUNT(*), COALESCE(SUM(failed), 0), COALESCE(AVG(latency_ms), 0)
		FROM request_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Requests, &u.Failures, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// OperationUsage is the request count of one gateway operation.
type OperationUsage struct {
	Operation string
	Requests  int
	Failures  int
}

// GetOperationUsage lists the busiest operations of the last N days.
func (s *Store) GetOperationUsage(days, limit int) ([]OperationUsage, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`
		SELECT operation, COUNT(*) AS n, COALESCE(SUM(failed), 0)
		FROM request_metrics
		WHERE timestamp >= ?
		GROUP BY operation
		ORDER BY n DESC, operation
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation usage: %w", err)
	}
	defer rows.Close()

	var results []OperationUsage
	for rows.Next() {
		var u OperationUsage
		if err := rows.Scan(&u.Operation, &u.Requests, &u.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan operation usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := s.db.Exec(`DELETE FROM request_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
