package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testEnv struct {
	store   *sqlite.Store
	handler *api.Handler
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := api.NewHandler(store, logger)
	// Pin the clock so "as of" months are stable.
	handler.Now = func() time.Time {
		return time.Date(2025, time.November, 15, 10, 0, 0, 0, time.UTC)
	}

	return &testEnv{
		store:   store,
		handler: handler,
		router:  api.NewRouter(handler, logger),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func standardPolicyConfig() factory.PolicyJSON {
	return factory.PolicyJSON{
		TotalAnnual:           24,
		RatePerMonth:          2,
		ProbationRatePerMonth: 1,
		Strategy:              "ACCRUAL",
		ApplicableFrom:        "2025-04",
		TypeCaps:              factory.CapsJSON{Paid: 12, Casual: 6, Sick: 6},
	}
}

func (e *testEnv) putStandardPolicy(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPut, "/api/companies/leave-policy",
		api.UpdatePolicyRequest{Config: standardPolicyConfig()})
	require.Equal(t, http.StatusOK, rec.Code)
}

func (e *testEnv) createEmployee(t *testing.T, name, email, joining string) api.EmployeeDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Name:        name,
		Email:       email,
		JoiningDate: joining,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[api.EmployeeDTO](t, rec)
}

// =============================================================================
// POLICY ENDPOINT TESTS
// =============================================================================

func TestPolicy_NotConfiguredIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/companies/leave-policy", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPolicy_UpdateBumpsVersion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/companies/leave-policy",
		api.UpdatePolicyRequest{Config: standardPolicyConfig()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.PolicyDTO](t, rec).Version)

	cfg := standardPolicyConfig()
	cfg.TotalAnnual = 30
	rec = env.do(t, http.MethodPut, "/api/companies/leave-policy",
		api.UpdatePolicyRequest{Config: cfg})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.PolicyDTO](t, rec)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 30.0, got.Config.TotalAnnual)

	rec = env.do(t, http.MethodGet, "/api/companies/leave-policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, decode[api.PolicyDTO](t, rec).Config.TotalAnnual)
}

// =============================================================================
// EMPLOYEE ENDPOINT TESTS
// =============================================================================

func TestEmployee_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	emp := env.createEmployee(t, "Asha Rao", "asha@example.com", "2025-10-10")
	assert.NotEmpty(t, emp.ID)
	assert.Equal(t, "PERMANENT", emp.Status)

	rec := env.do(t, http.MethodGet, "/api/employees/"+emp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asha@example.com", decode[api.EmployeeDTO](t, rec).Email)

	rec = env.do(t, http.MethodGet, "/api/employees/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployee_CreateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{Email: "x@y.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Name: "A", Email: "x@y.com", JoiningDate: "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BALANCE ENDPOINT TESTS - End to end through the derivation
// =============================================================================

func TestBalance_MidYearJoinerIsProrated(t *testing.T) {
	// GIVEN: 24 days/year at 2/month from 2025-04, joiner in 2025-10
	// WHEN: Viewing the balance in 2025-11
	// THEN: Entitlement is 12 and caps are scaled to half

	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "Mid Year", "mid@example.com", "2025-10-10")

	rec := env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decode[api.BalanceDTO](t, rec)

	require.NotNil(t, bal.Entitlement)
	assert.Equal(t, 12.0, *bal.Entitlement)
	assert.Equal(t, 6.0, bal.Caps.Paid)
	assert.Equal(t, 3.0, bal.Caps.Casual)
	assert.Equal(t, 3.0, bal.Caps.Sick)
	assert.Equal(t, 12.0, bal.TotalAvailable)
	assert.Equal(t, 24.0, bal.RawTotalAvailable)
	assert.False(t, bal.Overused)
	// Two elapsed months (Oct, Nov) at 2/month.
	assert.Equal(t, 4.0, bal.AccruedToDate)
	assert.Equal(t, "2025-11", bal.AsOf)
}

func TestBalance_FullYearJoinerKeepsFullCaps(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "Full Year", "full@example.com", "2025-04-01")

	rec := env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decode[api.BalanceDTO](t, rec)

	require.NotNil(t, bal.Entitlement)
	assert.Equal(t, 24.0, *bal.Entitlement)
	assert.Equal(t, 12.0, bal.Caps.Paid)
	assert.Equal(t, 24.0, bal.TotalAvailable)
}

func TestBalance_WithoutPolicyIs404(t *testing.T) {
	env := newTestEnv(t)
	emp := env.createEmployee(t, "No Policy", "np@example.com", "")

	rec := env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/balance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ADJUSTMENT TESTS
// =============================================================================

func TestAdjust_ConsumptionShowsUpInBalance(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "Adjusted", "adj@example.com", "2025-10-10")

	rec := env.do(t, http.MethodPost, "/api/companies/employees/"+emp.ID+"/leave-adjust",
		api.AdjustRequest{Type: "PAID", Days: 3, Reason: "migrated request"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decode[api.BalanceDTO](t, rec)

	assert.Equal(t, 3.0, bal.Used.Paid)
	assert.Equal(t, 3.0, bal.Balances.Paid, "scaled cap 6 minus 3 used")
	assert.Equal(t, 9.0, bal.TotalAvailable, "prorated 12 minus 3 used")
	assert.Equal(t, 21.0, bal.RawTotalAvailable)
}

func TestAdjust_RejectsZeroDaysAndUnknownType(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "A", "a@example.com", "")

	rec := env.do(t, http.MethodPost, "/api/companies/employees/"+emp.ID+"/leave-adjust",
		api.AdjustRequest{Type: "PAID", Days: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/companies/employees/"+emp.ID+"/leave-adjust",
		api.AdjustRequest{Type: "SABBATICAL", Days: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BACKFILL TESTS - All-or-nothing batches
// =============================================================================

func TestBackfill_ValidBatchInserts(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "B", "b@example.com", "")

	rec := env.do(t, http.MethodPost, "/api/leaves/backfill", api.BackfillRequest{
		Rows: []api.BackfillRowDTO{
			{Email: "b@example.com", Type: "PAID", StartDate: "2025-06-02", EndDate: "2025-06-04"},
			{Email: "b@example.com", Type: "SICK", StartDate: "2025-07-01", EndDate: "2025-07-01"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[api.BackfillResultDTO](t, rec).Inserted)

	rec = env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]api.EntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "backfill", entries[0].Source)
}

func TestBackfill_OneBadRowRejectsWholeBatch(t *testing.T) {
	// GIVEN: A batch where the second row has a malformed email
	// WHEN: Submitting
	// THEN: 422 with the row error, and nothing lands in the ledger

	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "C", "c@example.com", "")

	rec := env.do(t, http.MethodPost, "/api/leaves/backfill", api.BackfillRequest{
		Rows: []api.BackfillRowDTO{
			{Email: "c@example.com", Type: "PAID", StartDate: "2025-06-02", EndDate: "2025-06-04"},
			{Email: "not-an-email", Type: "PAID", StartDate: "2025-06-05", EndDate: "2025-06-06"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	result := decode[api.BackfillResultDTO](t, rec)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 1, result.RowErrors[0].Row)
	assert.Contains(t, result.RowErrors[0].Message, "email")

	rec = env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.EntryDTO](t, rec))
}

func TestBackfill_UnknownEmployeeEmailRejects(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)

	rec := env.do(t, http.MethodPost, "/api/leaves/backfill", api.BackfillRequest{
		Rows: []api.BackfillRowDTO{
			{Email: "ghost@example.com", Type: "PAID", StartDate: "2025-06-02", EndDate: "2025-06-04"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	result := decode[api.BackfillResultDTO](t, rec)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0].Message, "no employee")
}

func TestBackfill_CSVImport(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "D", "d@example.com", "")

	csv := strings.Join([]string{
		"email,type,start_date,end_date,reason",
		"d@example.com,PAID,2025-06-02,2025-06-04,family event",
		"d@example.com,CASUAL,2025-08-01,2025-08-01,",
	}, "\n")
	req := httptest.NewRequest(http.MethodPost, "/api/leaves/backfill/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[api.BackfillResultDTO](t, rec).Inserted)

	getRec := env.do(t, http.MethodGet, "/api/employees/"+emp.ID+"/entries", nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	entries := decode[[]api.EntryDTO](t, getRec)
	require.Len(t, entries, 2)
	daysByType := map[string]float64{}
	for _, e := range entries {
		daysByType[e.Type] = e.Days
	}
	assert.Equal(t, 3.0, daysByType["paid"], "2025-06-02 through 2025-06-04 inclusive")
	assert.Equal(t, 1.0, daysByType["casual"])
}

// =============================================================================
// SNAPSHOT SCHEDULER TESTS
// =============================================================================

func TestScheduler_WritesOneSnapshotPerMonth(t *testing.T) {
	env := newTestEnv(t)
	env.putStandardPolicy(t)
	emp := env.createEmployee(t, "Snap", "snap@example.com", "2025-10-10")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := api.NewSnapshotScheduler(env.store, env.handler, logger)

	sched.RunNow()
	sched.RunNow() // second pass in the same month is a no-op

	snaps, err := env.store.ListSnapshots(context.Background(), emp.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "2025-11", snaps[0].AsOf)
	assert.Equal(t, "12", snaps[0].TotalAvailable.String())
}

func TestScheduler_NoPolicyWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	emp := env.createEmployee(t, "Snap", "snap@example.com", "")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := api.NewSnapshotScheduler(env.store, env.handler, logger)
	sched.RunNow()

	snaps, err := env.store.ListSnapshots(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
