// Package subs resolves the subscription workbook into a label ->
// recipients mapping.
package subs

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"sitewatch/internal/domain"
	"sitewatch/internal/ports"
)

var requiredColumns = []string{"email", "schools", "status"}

// Resolver reads subscriptions from an xlsx workbook whose first sheet
// carries a header row with at least email, schools, and status columns.
type Resolver struct {
	path string
}

var _ ports.SubscriptionSource = (*Resolver)(nil)

// NewResolver points the resolver at the workbook path.
func NewResolver(path string) *Resolver {
	return &Resolver{path: path}
}

// Resolve returns label -> set of recipient addresses. Only rows whose
// status is ACTIVE (case-insensitive) and that carry both an email and a
// label list count. The schools field is comma-delimited; the full-width
// comma variant is tolerated. Missing required columns are fatal.
func (r *Resolver) Resolve(_ context.Context) (map[string]map[string]struct{}, error) {
	wb, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: subscriptions %s: %v", domain.ErrConfig, r.path, err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read subscriptions %s: %w", r.path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: subscriptions %s: empty sheet", domain.ErrConfig, r.path)
	}

	columns := map[string]int{}
	for idx, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			columns[name] = idx
		}
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: subscriptions %s: missing column %q", domain.ErrConfig, r.path, required)
		}
	}

	result := map[string]map[string]struct{}{}
	for _, row := range rows[1:] {
		email := strings.TrimSpace(cell(row, columns["email"]))
		schools := strings.TrimSpace(cell(row, columns["schools"]))
		status := strings.TrimSpace(cell(row, columns["status"]))

		if email == "" || schools == "" {
			continue
		}
		if !strings.EqualFold(status, "ACTIVE") {
			continue
		}

		schools = strings.ReplaceAll(schools, "，", ",")
		for _, label := range strings.Split(schools, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if result[label] == nil {
				result[label] = map[string]struct{}{}
			}
			result[label][email] = struct{}{}
		}
	}

	return result, nil
}

// cell guards against short rows; excelize trims trailing empty cells.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
