package leave_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func allowedPaidSick() leave.TypeSet {
	return leave.TypeSet{
		leave.TypePaid:   true,
		leave.TypeSick:   true,
		leave.TypeUnpaid: true,
	}
}

func validRow() leave.BackfillRow {
	return leave.BackfillRow{
		Email:     "a@b.com",
		Type:      "PAID",
		StartDate: "2025-01-01",
		EndDate:   "2025-01-02",
	}
}

// =============================================================================
// ROW VALIDATION TESTS
// =============================================================================

func TestValidateBackfillRow_ValidRow(t *testing.T) {
	msg := leave.ValidateBackfillRow(validRow(), allowedPaidSick())
	assert.Empty(t, msg)
}

func TestValidateBackfillRow_BadEmail(t *testing.T) {
	// GIVEN: A row with a malformed email but otherwise valid fields
	// WHEN: Validating
	// THEN: An email-related message comes first; fixing the email clears it

	row := validRow()
	row.Email = "not-an-email"

	msg := leave.ValidateBackfillRow(row, allowedPaidSick())
	assert.Contains(t, msg, "email")

	row.Email = "a@b.com"
	assert.Empty(t, leave.ValidateBackfillRow(row, allowedPaidSick()))
}

func TestValidateBackfillRow_DisallowedType(t *testing.T) {
	// Casual has no cap in this policy, so it is not an allowed type.
	row := validRow()
	row.Type = "CASUAL"

	msg := leave.ValidateBackfillRow(row, allowedPaidSick())
	assert.Contains(t, msg, "not enabled")
}

func TestValidateBackfillRow_UnpaidAlwaysAllowed(t *testing.T) {
	row := validRow()
	row.Type = "UNPAID"
	assert.Empty(t, leave.ValidateBackfillRow(row, allowedPaidSick()))
}

func TestValidateBackfillRow_BadDates(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"wrong shape", "2025-1-1", "2025-01-02", "start date"},
		{"not a date", "2025-13-40", "2025-01-02", "start date"},
		{"bad end", "2025-01-01", "garbage", "end date"},
		{"inverted range", "2025-01-05", "2025-01-02", "on or before"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			row.StartDate = tc.start
			row.EndDate = tc.end
			msg := leave.ValidateBackfillRow(row, allowedPaidSick())
			assert.Contains(t, msg, tc.want)
		})
	}
}

func TestValidateBackfillRow_ErrorOrdering(t *testing.T) {
	// GIVEN: A row failing several checks at once
	// WHEN: Validating
	// THEN: The first check in the fixed order wins (email before type)

	row := leave.BackfillRow{Email: "nope", Type: "CASUAL", StartDate: "bad", EndDate: "bad"}
	msg := leave.ValidateBackfillRow(row, allowedPaidSick())
	assert.Contains(t, msg, "email")
}

func TestValidateBackfillRow_FallbackType(t *testing.T) {
	row := validRow()
	row.FallbackType = "CASUAL"
	msg := leave.ValidateBackfillRow(row, allowedPaidSick())
	assert.Contains(t, msg, "fallback")

	row.FallbackType = "sick"
	assert.Empty(t, leave.ValidateBackfillRow(row, allowedPaidSick()))

	// Empty fallback is fine.
	row.FallbackType = ""
	assert.Empty(t, leave.ValidateBackfillRow(row, allowedPaidSick()))
}

func TestValidateBackfillRows_CollectsAllFailures(t *testing.T) {
	rows := []leave.BackfillRow{
		validRow(),
		{Email: "bad", Type: "PAID", StartDate: "2025-01-01", EndDate: "2025-01-02"},
		{Email: "c@d.io", Type: "PAID", StartDate: "2025-02-02", EndDate: "2025-02-01"},
	}

	errs := leave.ValidateBackfillRows(rows, allowedPaidSick())
	require.Len(t, errs, 2)
	assert.Equal(t, 1, errs[0].Row)
	assert.Equal(t, 2, errs[1].Row)
}

func TestBackfillRow_Days(t *testing.T) {
	row := validRow()
	assert.Equal(t, 2, row.Days(), "Jan 1..Jan 2 inclusive")

	row.EndDate = row.StartDate
	assert.Equal(t, 1, row.Days(), "single-day range")

	row.EndDate = "garbage"
	assert.Equal(t, 0, row.Days(), "unparsable dates yield zero")
}

// =============================================================================
// CSV IMPORT TESTS
// =============================================================================

func TestParseBackfillCSV_RoundTrip(t *testing.T) {
	// GIVEN: A well-formed CSV with optional columns and a blank line
	// WHEN: Parsing then validating
	// THEN: Rows come back in order and all pass validation

	csvData := strings.Join([]string{
		"email,type,start_date,end_date,fallback_type,reason",
		"a@b.com,PAID,2025-01-06,2025-01-08,,sabbatical backfill",
		"",
		"c@d.io,sick,2025-02-03,2025-02-03,paid,flu",
	}, "\n")

	rows, err := leave.ParseBackfillCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a@b.com", rows[0].Email)
	assert.Equal(t, "PAID", rows[0].Type)
	assert.Equal(t, "sabbatical backfill", rows[0].Reason)
	assert.Equal(t, "paid", rows[1].FallbackType)

	assert.Empty(t, leave.ValidateBackfillRows(rows, allowedPaidSick()))
}

func TestParseBackfillCSV_OptionalColumnsOmitted(t *testing.T) {
	csvData := "email,type,start_date,end_date\na@b.com,PAID,2025-01-06,2025-01-08\n"

	rows, err := leave.ParseBackfillCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].FallbackType)
	assert.Empty(t, rows[0].Reason)
}

func TestParseBackfillCSV_MissingRequiredColumn(t *testing.T) {
	csvData := "email,type,start_date\na@b.com,PAID,2025-01-06\n"

	_, err := leave.ParseBackfillCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_date")
}

func TestParseBackfillCSV_EmptyStream(t *testing.T) {
	_, err := leave.ParseBackfillCSV(strings.NewReader(""))
	require.Error(t, err)
}
