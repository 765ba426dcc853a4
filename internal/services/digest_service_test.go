package services

import (
	"strings"
	"testing"
	"time"

	"fieldreport/internal/models"
)

func report(category models.Category, content string, at time.Time) models.Report {
	return models.Report{
		UserID:    1,
		Category:  category,
		Content:   content,
		CreatedAt: at,
	}
}

func TestFormat_Empty(t *testing.T) {
	svc := NewDigestService()

	for _, single := range []bool{true, false} {
		if got := svc.Format(nil, single); got != EmptyDigestMessage {
			t.Errorf("Format(nil, %v) = %q, want %q", single, got, EmptyDigestMessage)
		}
	}
}

func TestFormat_SingleCategory(t *testing.T) {
	svc := NewDigestService()
	at := time.Date(2026, 9, 1, 14, 30, 0, 0, time.Local)

	got := svc.Format([]models.Report{
		report(models.CategoryOverheat, "Lenina 5 - 85C", at),
		report(models.CategoryOverheat, "Mira 12 - 92C", at),
	}, true)

	if !strings.Contains(got, models.CategoryOverheat.Label()) {
		t.Errorf("Expected header with category label, got:\n%s", got)
	}
	if !strings.Contains(got, "01.09.2026") || !strings.Contains(got, "14:30") {
		t.Errorf("Expected date and time components, got:\n%s", got)
	}
	if !strings.Contains(got, "Lenina 5 - 85C") || !strings.Contains(got, "Mira 12 - 92C") {
		t.Errorf("Expected every report's content, got:\n%s", got)
	}
}

func TestFormat_GroupedByCategory(t *testing.T) {
	svc := NewDigestService()
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local)

	got := svc.Format([]models.Report{
		report(models.CategoryOverheat, "boiler 85C", at),
		report(models.CategoryBreakdown, "pump seized", at),
		report(models.CategoryOverheat, "exchanger 91C", at),
	}, false)

	overheatIdx := strings.Index(got, models.CategoryOverheat.Label())
	breakdownIdx := strings.Index(got, models.CategoryBreakdown.Label())
	if overheatIdx < 0 || breakdownIdx < 0 {
		t.Fatalf("Expected one header block per category, got:\n%s", got)
	}

	// Grouping order follows first appearance in the input
	if overheatIdx > breakdownIdx {
		t.Errorf("Expected overheat group before breakdown group, got:\n%s", got)
	}

	// Each block lists only its own reports
	if strings.Count(got, models.CategoryOverheat.Label()) != 1 {
		t.Errorf("Expected exactly one overheat header, got:\n%s", got)
	}
	breakdownBlock := got[breakdownIdx:]
	if strings.Contains(breakdownBlock, "boiler 85C") {
		t.Errorf("Overheat report leaked into breakdown block:\n%s", got)
	}
	if !strings.Contains(breakdownBlock, "pump seized") {
		t.Errorf("Breakdown block missing its report:\n%s", got)
	}
}

func TestFormat_MixedCategoriesSingleFlag(t *testing.T) {
	// A caller that passes mixed categories with singleCategory=true has
	// violated the precondition; the formatter must still not panic.
	svc := NewDigestService()
	at := time.Now()

	got := svc.Format([]models.Report{
		report(models.CategoryOverheat, "a", at),
		report(models.CategoryBreakdown, "b", at),
	}, true)

	if got == "" {
		t.Error("Expected non-empty output for precondition violation")
	}
}
