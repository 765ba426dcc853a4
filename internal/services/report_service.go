package services

import (
	"database/sql"
	"fmt"
	"time"

	"fieldreport/internal/database"
	"fieldreport/internal/models"
)

// ReportService is the persistent store of field reports: a single flat
// table, append + read + delete, no in-place updates.
type ReportService struct {
	db *database.DB
}

// NewReportService creates a new report service
func NewReportService(db *database.DB) *ReportService {
	return &ReportService{db: db}
}

// Save appends one report with a fresh id and the current wall-clock time
func (s *ReportService) Save(userID int64, displayName string, category models.Category, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO reports (user_id, display_name, category, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, displayName, string(category), content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ListRecent returns reports created within the trailing 24 hours,
// newest first. An empty category means no category filter.
func (s *ReportService) ListRecent(category models.Category) ([]models.Report, error) {
	since := time.Now().Add(-24 * time.Hour)
	if category != "" {
		return s.query(
			`SELECT id, user_id, display_name, category, content, created_at
			 FROM reports WHERE created_at >= ? AND category = ?
			 ORDER BY created_at DESC, id DESC`,
			since, string(category),
		)
	}
	return s.query(
		`SELECT id, user_id, display_name, category, content, created_at
		 FROM reports WHERE created_at >= ?
		 ORDER BY created_at DESC, id DESC`,
		since,
	)
}

// ListAll returns every report regardless of age, newest first.
// An empty category means no category filter.
func (s *ReportService) ListAll(category models.Category) ([]models.Report, error) {
	if category != "" {
		return s.query(
			`SELECT id, user_id, display_name, category, content, created_at
			 FROM reports WHERE category = ?
			 ORDER BY created_at DESC, id DESC`,
			string(category),
		)
	}
	return s.query(
		`SELECT id, user_id, display_name, category, content, created_at
		 FROM reports ORDER BY created_at DESC, id DESC`,
	)
}

// Find returns the report with the given id, or nil if no such report
func (s *ReportService) Find(id int64) (*models.Report, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, display_name, category, content, created_at
		 FROM reports WHERE id = ?`,
		id,
	)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report %d: %w", id, err)
	}
	return report, nil
}

// Delete removes the report with the given id. Deleting an id that does
// not exist is a successful no-op.
func (s *ReportService) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	return nil
}

func (s *ReportService) query(q string, args ...any) ([]models.Report, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		var displayName sql.NullString
		var category string
		if err := rows.Scan(&r.ID, &r.UserID, &displayName, &category, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.DisplayName = displayName.String
		r.Category = models.Category(category)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var displayName sql.NullString
	var category string
	if err := row.Scan(&r.ID, &r.UserID, &displayName, &category, &r.Content, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.DisplayName = displayName.String
	r.Category = models.Category(category)
	return &r, nil
}
