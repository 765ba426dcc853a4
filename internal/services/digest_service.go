package services

import (
	"fmt"
	"strings"

	"fieldreport/internal/models"
)

// EmptyDigestMessage is returned whenever there is nothing to report
const EmptyDigestMessage = "Пока нет ни одной записи."

const (
	digestDateFormat = "02.01.2006"
	digestTimeFormat = "15:04"
)

// DigestService renders lists of reports into display text. It is a pure
// transform: timestamps are split into date and time components and shown
// verbatim in whatever zone the store recorded them.
type DigestService struct{}

// NewDigestService creates a new digest service
func NewDigestService() *DigestService {
	return &DigestService{}
}

// Format renders reports into text. With singleCategory the caller
// guarantees every report shares one category and the output is a single
// header block with date, time and content per report. Otherwise reports
// are grouped by category, groups ordered by first appearance in the
// input, each member listed with its time and content.
func (s *DigestService) Format(reports []models.Report, singleCategory bool) string {
	if len(reports) == 0 {
		return EmptyDigestMessage
	}

	var b strings.Builder

	if singleCategory {
		b.WriteString(fmt.Sprintf("📋 %s:\n", reports[0].Category.Label()))
		for _, r := range reports {
			b.WriteString(fmt.Sprintf("%s %s — %s\n",
				r.CreatedAt.Format(digestDateFormat),
				r.CreatedAt.Format(digestTimeFormat),
				r.Content))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	// Group by category, preserving first-appearance order and each
	// group's internal order.
	groupIndex := make(map[models.Category]int)
	var groups [][]models.Report
	for _, r := range reports {
		i, ok := groupIndex[r.Category]
		if !ok {
			i = len(groups)
			groupIndex[r.Category] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}

	for i, group := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("📋 %s:\n", group[0].Category.Label()))
		for _, r := range group {
			b.WriteString(fmt.Sprintf("%s — %s\n",
				r.CreatedAt.Format(digestTimeFormat),
				r.Content))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
