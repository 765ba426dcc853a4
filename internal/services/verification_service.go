package services

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"fieldreport/internal/models"
)

// Fixed column layout of the verification spreadsheet: the two leading
// columns form the device name, the verification date sits at a later
// fixed offset.
const (
	verificationNameCol1 = 0
	verificationNameCol2 = 1
	verificationDateCol  = 3
)

// verificationWindow is how far ahead upcoming verifications are shown
const verificationWindowMonths = 3

// Date renderings excelize produces for date-typed cells, plus the
// layouts the file is maintained in by hand.
var verificationDateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
}

const (
	verificationFileMissingMessage = "Файл с графиком поверки не найден."
	verificationEmptyMessage       = "В ближайшие три месяца поверок нет."
)

// VerificationService reads the external verification spreadsheet and
// renders the devices due for verification within the next three months.
type VerificationService struct {
	path string
}

// NewVerificationService creates a verification service over the
// spreadsheet at path
func NewVerificationService(path string) *VerificationService {
	return &VerificationService{path: path}
}

// Read parses the spreadsheet and returns display text. Every failure is
// rendered as a user-facing message, never returned as an error: a broken
// verification file must not break the bot.
func (s *VerificationService) Read() string {
	if _, err := os.Stat(s.path); err != nil {
		return verificationFileMissingMessage
	}

	entries, err := s.readEntries()
	if err != nil {
		log.Printf("⚠️ [VERIFICATION] Failed to read %s: %v", s.path, err)
		return fmt.Sprintf("Не удалось прочитать файл поверки: %v", err)
	}

	if len(entries) == 0 {
		return verificationEmptyMessage
	}

	var b strings.Builder
	b.WriteString("🔔 Ближайшие поверки приборов:\n")
	for i, e := range entries {
		b.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, e.Name, e.Date.Format("02.01.2006")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *VerificationService) readEntries() ([]models.VerificationEntry, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	today := dateOnly(time.Now())
	horizon := today.AddDate(0, verificationWindowMonths, 0)

	var entries []models.VerificationEntry
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}

		name := joinNameParts(cell(row, verificationNameCol1), cell(row, verificationNameCol2))
		if name == "" {
			continue
		}

		date, ok := parseVerificationDate(cell(row, verificationDateCol))
		if !ok {
			// Not a date-bearing cell; skip the row rather than fail.
			continue
		}

		date = dateOnly(date)
		if date.Before(today) || date.After(horizon) {
			continue
		}

		entries = append(entries, models.VerificationEntry{
			Name:     name,
			Date:     date,
			DaysLeft: int(date.Sub(today).Hours() / 24),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	return entries, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func joinNameParts(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func parseVerificationDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range verificationDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateOnly strips the clock and the zone so the window check compares
// calendar dates regardless of where a value was parsed.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
