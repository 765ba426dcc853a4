package services

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// writeVerificationFile builds an XLSX fixture with the production column
// layout: name parts in A/B, verification date in D.
func writeVerificationFile(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []any{"Объект", "Прибор", "Зав. №", "Дата поверки"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("Failed to write row %d: %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "verification.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save fixture: %v", err)
	}
	return path
}

func dateCell(t time.Time) string {
	return t.Format("02.01.2006")
}

func TestRead_MissingFile(t *testing.T) {
	svc := NewVerificationService(filepath.Join(t.TempDir(), "absent.xlsx"))
	if got := svc.Read(); got != verificationFileMissingMessage {
		t.Errorf("Read() = %q, want %q", got, verificationFileMissingMessage)
	}
}

func TestRead_WindowBoundaries(t *testing.T) {
	today := time.Now()
	horizon := today.AddDate(0, 3, 0)

	path := writeVerificationFile(t, [][]any{
		{"ТЭЦ-1", "Манометр", "101", dateCell(today)},               // lower boundary, included
		{"ТЭЦ-1", "Термометр", "102", dateCell(horizon)},            // upper boundary, included
		{"ТЭЦ-2", "Расходомер", "103", dateCell(today.AddDate(0, 0, -1))},  // past, excluded
		{"ТЭЦ-2", "Датчик", "104", dateCell(horizon.AddDate(0, 0, 1))},     // beyond horizon, excluded
	})

	svc := NewVerificationService(path)
	got := svc.Read()

	if !strings.Contains(got, "Манометр") {
		t.Errorf("Expected today's entry included, got:\n%s", got)
	}
	if !strings.Contains(got, "Термометр") {
		t.Errorf("Expected horizon entry included, got:\n%s", got)
	}
	if strings.Contains(got, "Расходомер") {
		t.Errorf("Expected past entry excluded, got:\n%s", got)
	}
	if strings.Contains(got, "Датчик") {
		t.Errorf("Expected beyond-horizon entry excluded, got:\n%s", got)
	}
}

func TestRead_SkipsMalformedRows(t *testing.T) {
	today := time.Now()

	path := writeVerificationFile(t, [][]any{
		{"", "", "201", dateCell(today)},              // empty name, skipped
		{"ТЭЦ-3", "Насос", "202", "по графику"},       // not a date, skipped
		{"ТЭЦ-3", "Котёл", "203", ""},                 // unset date, skipped
		{"ТЭЦ-3", "Клапан", "204", dateCell(today)},   // valid
	})

	svc := NewVerificationService(path)
	got := svc.Read()

	if !strings.Contains(got, "Клапан") {
		t.Fatalf("Expected valid entry rendered, got:\n%s", got)
	}
	if strings.Contains(got, "Насос") || strings.Contains(got, "Котёл") {
		t.Errorf("Expected malformed rows skipped, got:\n%s", got)
	}
	if !strings.HasPrefix(strings.TrimSpace(strings.SplitN(got, "\n", 2)[1]), "1.") {
		t.Errorf("Expected enumerated list, got:\n%s", got)
	}
}

func TestRead_SortedAscending(t *testing.T) {
	today := time.Now()

	path := writeVerificationFile(t, [][]any{
		{"ТЭЦ-4", "Поздний", "301", dateCell(today.AddDate(0, 2, 0))},
		{"ТЭЦ-4", "Ранний", "302", dateCell(today.AddDate(0, 0, 3))},
	})

	svc := NewVerificationService(path)
	got := svc.Read()

	early := strings.Index(got, "Ранний")
	late := strings.Index(got, "Поздний")
	if early < 0 || late < 0 {
		t.Fatalf("Expected both entries rendered, got:\n%s", got)
	}
	if early > late {
		t.Errorf("Expected ascending date order, got:\n%s", got)
	}
}

func TestRead_NameConcatenation(t *testing.T) {
	today := time.Now()

	path := writeVerificationFile(t, [][]any{
		{"ТЭЦ-5", "Манометр", "401", dateCell(today)},
		{"Котельная", "", "402", dateCell(today)},
	})

	svc := NewVerificationService(path)
	got := svc.Read()

	if !strings.Contains(got, "ТЭЦ-5 Манометр") {
		t.Errorf("Expected both name parts joined, got:\n%s", got)
	}
	// A single non-empty part stands alone, without a stray separator
	if !strings.Contains(got, "Котельная —") {
		t.Errorf("Expected single-part name rendered cleanly, got:\n%s", got)
	}
}
