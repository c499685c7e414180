/*
backfill.go - Bulk historical leave import

PURPOSE:
  Validates rows for bulk, usually retroactive, creation of leave records
  (manual rows or a CSV upload). Validation returns human-readable field
  errors, not Go errors: a bad row is local and recoverable - the user
  fixes the cell - and must never escalate.

ORDERING:
  Checks run in a fixed order and the first failure wins, so the user sees
  one stable message per row: email shape, leave type, start date, end
  date, date ordering, fallback type.

CSV FORMAT:
  Header-driven: email,type,start_date,end_date,fallback_type,reason.
  The last two columns are optional. Blank lines are skipped; parsing and
  validation are separate steps so a parse error (malformed file) and a
  validation error (bad cell) surface differently.
*/
package leave

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// BACKFILL ROW
// =============================================================================

// BackfillRow is one historical leave entry as entered or imported.
// All fields are raw strings; validation happens in ValidateBackfillRow.
type BackfillRow struct {
	Email        string
	Type         string
	StartDate    string
	EndDate      string
	FallbackType string
	Reason       string
}

// Days returns the inclusive day count of the row's date range. Zero when
// either date fails to parse - callers validate first.
func (r BackfillRow) Days() int {
	start, err1 := time.Parse(dateLayout, r.StartDate)
	end, err2 := time.Parse(dateLayout, r.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

const dateLayout = "2006-01-02"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// =============================================================================
// ROW VALIDATION
// =============================================================================

// ValidateBackfillRow checks one row against the types the current policy
// allows. Returns a human-readable message for the first failing check, or
// "" when the row is valid. Pure - safe to re-run on every field edit.
func ValidateBackfillRow(row BackfillRow, allowed TypeSet) string {
	if !emailPattern.MatchString(strings.TrimSpace(row.Email)) {
		return "email must be a valid address like name@company.com"
	}

	leaveType, ok := ParseLeaveType(row.Type)
	if !ok || !allowed.Contains(leaveType) {
		return fmt.Sprintf("leave type %q is not enabled by the current policy", row.Type)
	}

	if !validDate(row.StartDate) {
		return "start date must be a valid date in YYYY-MM-DD format"
	}
	if !validDate(row.EndDate) {
		return "end date must be a valid date in YYYY-MM-DD format"
	}

	start, _ := time.Parse(dateLayout, row.StartDate)
	end, _ := time.Parse(dateLayout, row.EndDate)
	if start.After(end) {
		return "start date must be on or before end date"
	}

	if fb := strings.TrimSpace(row.FallbackType); fb != "" {
		fbType, ok := ParseLeaveType(fb)
		if !ok || !allowed.Contains(fbType) {
			return fmt.Sprintf("fallback type %q is not enabled by the current policy", row.FallbackType)
		}
	}

	return ""
}

// validDate requires the exact YYYY-MM-DD shape AND a real calendar date;
// time.Parse alone would accept "2025-1-1".
func validDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// RowError ties a validation message to its row index.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ValidateBackfillRows validates every row and collects all failures.
// An empty result means the whole batch may be submitted.
func ValidateBackfillRows(rows []BackfillRow, allowed TypeSet) []RowError {
	var errs []RowError
	for i, row := range rows {
		if msg := ValidateBackfillRow(row, allowed); msg != "" {
			errs = append(errs, RowError{Row: i, Message: msg})
		}
	}
	return errs
}

// =============================================================================
// CSV IMPORT
// =============================================================================

var backfillColumns = []string{"email", "type", "start_date", "end_date", "fallback_type", "reason"}

// ParseBackfillCSV reads backfill rows from a CSV stream. The first record
// must be the header; fallback_type and reason may be omitted. Returned
// rows are unvalidated.
func ParseBackfillCSV(r io.Reader) ([]BackfillRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range backfillColumns[:4] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []BackfillRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(rows)+2, err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, BackfillRow{
			Email:        field(record, "email"),
			Type:         field(record, "type"),
			StartDate:    field(record, "start_date"),
			EndDate:      field(record, "end_date"),
			FallbackType: field(record, "fallback_type"),
			Reason:       field(record, "reason"),
		})
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
