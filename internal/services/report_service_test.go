package services

import (
	"path/filepath"
	"testing"
	"time"

	"fieldreport/internal/database"
	"fieldreport/internal/models"
)

func newTestReportService(t *testing.T) (*ReportService, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	return NewReportService(db), db
}

func TestSaveAndListAll(t *testing.T) {
	svc, _ := newTestReportService(t)

	if err := svc.Save(1, "@tech", models.CategoryOverheat, "Lenina 5 - 85C"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if err := svc.Save(1, "@tech", models.CategoryBreakdown, "Mira 12 - pump down"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	reports, err := svc.ListAll("")
	if err != nil {
		t.Fatalf("Failed to list reports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}

	// Newest first
	if reports[0].Content != "Mira 12 - pump down" {
		t.Errorf("Expected newest report first, got %q", reports[0].Content)
	}
	if reports[0].ID <= reports[1].ID {
		t.Errorf("Expected descending ids, got %d then %d", reports[0].ID, reports[1].ID)
	}
	if reports[1].Category != models.CategoryOverheat {
		t.Errorf("Expected category %q, got %q", models.CategoryOverheat, reports[1].Category)
	}
	if reports[1].DisplayName != "@tech" {
		t.Errorf("Expected display name to round-trip, got %q", reports[1].DisplayName)
	}
}

func TestListAll_CategoryFilter(t *testing.T) {
	svc, _ := newTestReportService(t)

	if err := svc.Save(1, "", models.CategoryOverheat, "hot"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if err := svc.Save(1, "", models.CategoryDeviation, "off by 3"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	reports, err := svc.ListAll(models.CategoryDeviation)
	if err != nil {
		t.Fatalf("Failed to list reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	if reports[0].Content != "off by 3" {
		t.Errorf("Expected filtered report, got %q", reports[0].Content)
	}
}

func TestListRecent_Window(t *testing.T) {
	svc, db := newTestReportService(t)

	if err := svc.Save(1, "", models.CategoryOverheat, "fresh"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	// Insert a report 25 hours in the past, outside the trailing window
	_, err := db.Exec(
		`INSERT INTO reports (user_id, display_name, category, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		int64(1), "", string(models.CategoryOverheat), "stale", time.Now().Add(-25*time.Hour),
	)
	if err != nil {
		t.Fatalf("Failed to insert stale report: %v", err)
	}

	recent, err := svc.ListRecent("")
	if err != nil {
		t.Fatalf("Failed to list recent reports: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("Expected 1 recent report, got %d", len(recent))
	}
	if recent[0].Content != "fresh" {
		t.Errorf("Expected only the fresh report, got %q", recent[0].Content)
	}

	all, err := svc.ListAll("")
	if err != nil {
		t.Fatalf("Failed to list all reports: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 reports regardless of age, got %d", len(all))
	}
}

func TestFind_Absent(t *testing.T) {
	svc, _ := newTestReportService(t)

	report, err := svc.Find(12345)
	if err != nil {
		t.Fatalf("Find on empty store returned error: %v", err)
	}
	if report != nil {
		t.Fatalf("Expected nil for absent id, got %+v", report)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	svc, _ := newTestReportService(t)

	if err := svc.Save(1, "", models.CategoryBreakdown, "doomed"); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	reports, err := svc.ListAll("")
	if err != nil {
		t.Fatalf("Failed to list reports: %v", err)
	}
	id := reports[0].ID

	if err := svc.Delete(id); err != nil {
		t.Fatalf("First delete failed: %v", err)
	}

	report, err := svc.Find(id)
	if err != nil {
		t.Fatalf("Find after delete failed: %v", err)
	}
	if report != nil {
		t.Fatalf("Expected report %d gone after delete, got %+v", id, report)
	}

	// Deleting again must still succeed
	if err := svc.Delete(id); err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
}
