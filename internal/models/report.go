package models

import "time"

// Category classifies a field report
type Category string

const (
	CategoryOverheat  Category = "overheat"
	CategoryDeviation Category = "deviation"
	CategoryBreakdown Category = "breakdown"
	CategoryUnclear   Category = "unclear"
)

// Categories lists every known category in menu order
var Categories = []Category{
	CategoryOverheat,
	CategoryDeviation,
	CategoryBreakdown,
	CategoryUnclear,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryOverheat, CategoryDeviation, CategoryBreakdown, CategoryUnclear:
		return true
	}
	return false
}

// Label returns the human-readable (menu button) name of the category
func (c Category) Label() string {
	switch c {
	case CategoryOverheat:
		return "Перегревы"
	case CategoryDeviation:
		return "Отклонения по замерам"
	case CategoryBreakdown:
		return "Поломки"
	case CategoryUnclear:
		return "Прочее"
	}
	return string(c)
}

// CategoryFromLabel resolves a menu button label back to a category.
// Returns false if the label is not a category button.
func CategoryFromLabel(label string) (Category, bool) {
	for _, c := range Categories {
		if c.Label() == label {
			return c, true
		}
	}
	return "", false
}

// Report is one technician-submitted entry
type Report struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Category    Category  `json:"category"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationEntry is a device with an upcoming verification date,
// derived from the verification spreadsheet on every read
type VerificationEntry struct {
	Name     string
	Date     time.Time
	DaysLeft int
}
