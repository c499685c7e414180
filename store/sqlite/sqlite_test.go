package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(n float64) decimal.Decimal { return decimal.NewFromFloat(n) }

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestPolicy_SaveAndVersionBump(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetPolicy(ctx)
	assert.True(t, errors.Is(err, leave.ErrPolicyNotConfigured))

	require.NoError(t, store.SavePolicy(ctx, `{"total_annual":24}`))
	rec, err := store.GetPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)

	require.NoError(t, store.SavePolicy(ctx, `{"total_annual":30}`))
	rec, err = store.GetPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Contains(t, rec.ConfigJSON, "30")
}

// =============================================================================
// EMPLOYEE TESTS
// =============================================================================

func TestEmployee_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := sqlite.Employee{
		ID:          "emp-1",
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		JoiningDate: "2025-10-10",
		Status:      "PROBATION",
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", got.Name)
	assert.Equal(t, "2025-10-10", got.JoiningDate)

	byEmail, err := store.GetEmployeeByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", byEmail.ID)

	_, err = store.GetEmployee(ctx, "missing")
	assert.True(t, errors.Is(err, leave.ErrEmployeeNotFound))
}

func TestEmployee_GeneratedID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{
		Name:  "No ID",
		Email: "noid@example.com",
	}))
	emp, err := store.GetEmployeeByEmail(ctx, "noid@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, emp.ID)
}

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestEntries_AggregateByType(t *testing.T) {
	// GIVEN: A mix of request, backfill, and adjustment entries
	// WHEN: Aggregating usage per type
	// THEN: Sums include backfill, adjustments subtract, floor at zero

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "A", Email: "a@b.com"}))

	entries := []sqlite.Entry{
		{EmployeeID: "emp-1", LeaveType: leave.TypePaid, Days: d(3), Source: sqlite.SourceRequest},
		{EmployeeID: "emp-1", LeaveType: leave.TypePaid, Days: d(2), Source: sqlite.SourceBackfill},
		{EmployeeID: "emp-1", LeaveType: leave.TypePaid, Days: d(-1), Source: sqlite.SourceAdjustment},
		{EmployeeID: "emp-1", LeaveType: leave.TypeSick, Days: d(1.5), Source: sqlite.SourceRequest},
		{EmployeeID: "emp-1", LeaveType: leave.TypeCasual, Days: d(-4), Source: sqlite.SourceAdjustment},
		{EmployeeID: "emp-1", LeaveType: leave.TypeUnpaid, Days: d(2), Source: sqlite.SourceRequest},
	}
	require.NoError(t, store.AppendEntries(ctx, entries))

	used, err := store.UsedByType(ctx, "emp-1")
	require.NoError(t, err)

	assert.Equal(t, "4", used.Paid.String(), "3 + 2 - 1")
	assert.Equal(t, "1.5", used.Sick.String())
	assert.True(t, used.Casual.IsZero(), "negative aggregate floors at zero")
	assert.Equal(t, "2", used.Unpaid.String())
}

func TestEntries_BatchIsAtomic(t *testing.T) {
	// GIVEN: A batch whose second entry violates the employee FK
	// WHEN: Appending
	// THEN: Nothing from the batch lands

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "A", Email: "a@b.com"}))

	batch := []sqlite.Entry{
		{EmployeeID: "emp-1", LeaveType: leave.TypePaid, Days: d(1), Source: sqlite.SourceBackfill},
		{EmployeeID: "ghost", LeaveType: leave.TypePaid, Days: d(1), Source: sqlite.SourceBackfill},
	}
	require.Error(t, store.AppendEntries(ctx, batch))

	entries, err := store.EntriesByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntries_PreserveDecimalText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "A", Email: "a@b.com"}))

	days, _ := decimal.NewFromString("1.67")
	require.NoError(t, store.AppendEntry(ctx, sqlite.Entry{
		EmployeeID: "emp-1", LeaveType: leave.TypeCasual, Days: days, Source: sqlite.SourceRequest,
	}))

	entries, err := store.EntriesByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.67", entries[0].Days.String())
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestSnapshots_IdempotentPerMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "A", Email: "a@b.com"}))

	snap := sqlite.Snapshot{
		EmployeeID:     "emp-1",
		AsOf:           "2025-06",
		Balances:       leave.Balances{Paid: d(10)},
		TotalAvailable: d(18),
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	// Second write for the same month is a no-op.
	snap.TotalAvailable = d(99)
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	ok, err := store.HasSnapshot(ctx, "emp-1", "2025-06")
	require.NoError(t, err)
	assert.True(t, ok)

	snaps, err := store.ListSnapshots(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "18", snaps[0].TotalAvailable.String())
}
