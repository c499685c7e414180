/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores the company leave policy, employee records, the append-only
  leave-entry ledger, and monthly balance snapshots. The calculator never
  touches this package - handlers load facts from here, compute, and
  return; nothing computed is written back except audit snapshots.

APPEND-ONLY ENFORCEMENT:
  leave_entries is a ledger:
  - No UPDATE statements on leave_entries
  - No DELETE statements on leave_entries
  - Corrections are new adjustment entries with negative day counts

KEY TABLES:
  leave_policy:      Single-row, versioned policy config JSON
  employees:         Employee records (joining date, employment status)
  leave_entries:     Immutable ledger of consumed/adjusted leave days
  balance_snapshots: Monthly derived-balance audit trail

PRECISION:
  Day counts are stored as decimal strings (TEXT), never floats, so what
  the calculator produced is byte-for-byte what comes back out.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery. A sync.RWMutex guards the connection;
  with a server database this would be the database's job.

USAGE:
  store, err := sqlite.New("./data/leave.db")   // ":memory:" for tests
  defer store.Close()

SEE ALSO:
  - ../../leave: The calculator consuming these records
  - ../../api/handlers.go: The only caller
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements all persistence for the leave engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store backed by the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_policy (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		joining_date TEXT,
		status TEXT NOT NULL DEFAULT 'PERMANENT',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_email ON employees(email);

	-- Append-only: corrections are new adjustment entries, never edits.
	CREATE TABLE IF NOT EXISTS leave_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		days TEXT NOT NULL,
		reason TEXT,
		source TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_employee_type
		ON leave_entries(employee_id, leave_type);
	CREATE INDEX IF NOT EXISTS idx_entries_employee_date
		ON leave_entries(employee_id, start_date);

	CREATE TABLE IF NOT EXISTS balance_snapshots (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		as_of TEXT NOT NULL,
		paid TEXT NOT NULL,
		casual TEXT NOT NULL,
		sick TEXT NOT NULL,
		unpaid TEXT NOT NULL,
		total_available TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, as_of)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY - Single versioned row
// =============================================================================

// PolicyRecord is the persisted policy config with its version.
type PolicyRecord struct {
	ConfigJSON string
	Version    int
	UpdatedAt  time.Time
}

// SavePolicy upserts the company policy and bumps its version.
func (s *Store) SavePolicy(ctx context.Context, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_policy (id, config_json, version, updated_at)
		VALUES (1, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			version = leave_policy.version + 1,
			updated_at = excluded.updated_at`,
		configJSON, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetPolicy returns the stored policy, or ErrPolicyNotConfigured.
func (s *Store) GetPolicy(ctx context.Context) (*PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec PolicyRecord
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json, version, updated_at FROM leave_policy WHERE id = 1`,
	).Scan(&rec.ConfigJSON, &rec.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, leave.ErrPolicyNotConfigured
	}
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// Employee is the persisted employee record. JoiningDate is the raw string
// as entered ("" when unknown) - parsing is the calculator's concern so a
// bad historical value degrades instead of blocking the row.
type Employee struct {
	ID          string
	Name        string
	Email       string
	JoiningDate string
	Status      string
	CreatedAt   time.Time
}

// SaveEmployee inserts or replaces an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, joining_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			joining_date = excluded.joining_date,
			status = excluded.status`,
		emp.ID, emp.Name, emp.Email, emp.JoiningDate, emp.Status,
		emp.CreatedAt.Format(time.RFC3339))
	return err
}

// GetEmployee returns an employee by ID, or ErrEmployeeNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEmployee(ctx, `SELECT id, name, email, joining_date, status, created_at FROM employees WHERE id = ?`, id)
}

// GetEmployeeByEmail returns an employee by email, or ErrEmployeeNotFound.
// Backfill rows are keyed by email, not ID.
func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEmployee(ctx, `SELECT id, name, email, joining_date, status, created_at FROM employees WHERE email = ?`, email)
}

func (s *Store) queryEmployee(ctx context.Context, query string, arg any) (*Employee, error) {
	var emp Employee
	var joining, createdAt sql.NullString
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&emp.ID, &emp.Name, &emp.Email, &joining, &emp.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	emp.JoiningDate = joining.String
	if createdAt.Valid {
		emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, joining_date, status, created_at FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		var joining, createdAt sql.NullString
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Email, &joining, &emp.Status, &createdAt); err != nil {
			return nil, err
		}
		emp.JoiningDate = joining.String
		if createdAt.Valid {
			emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// LEAVE ENTRIES - Append-only ledger
// =============================================================================

// EntrySource records how an entry came to exist.
type EntrySource string

const (
	SourceRequest    EntrySource = "request"
	SourceBackfill   EntrySource = "backfill"
	SourceAdjustment EntrySource = "adjustment"
)

// Entry is one immutable leave-ledger record. Days may be negative only
// for adjustments (an adjustment that restores balance).
type Entry struct {
	ID         string
	EmployeeID string
	LeaveType  leave.LeaveType
	StartDate  string
	EndDate    string
	Days       decimal.Decimal
	Reason     string
	Source     EntrySource
	CreatedAt  time.Time
}

// AppendEntry appends a single ledger entry.
func (s *Store) AppendEntry(ctx context.Context, e Entry) error {
	return s.AppendEntries(ctx, []Entry{e})
}

// AppendEntries appends a batch atomically: either every entry lands or
// none do. Backfill batches rely on this all-or-nothing behavior.
func (s *Store) AppendEntries(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		createdAt := now
		if !e.CreatedAt.IsZero() {
			createdAt = e.CreatedAt.Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leave_entries
				(id, employee_id, leave_type, start_date, end_date, days, reason, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.EmployeeID, string(e.LeaveType), e.StartDate, e.EndDate,
			e.Days.String(), e.Reason, string(e.Source), createdAt)
		if err != nil {
			return fmt.Errorf("appending leave entry: %w", err)
		}
	}
	return tx.Commit()
}

// EntriesByEmployee returns the full ledger for one employee, oldest first.
func (s *Store) EntriesByEmployee(ctx context.Context, employeeID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, leave_type, start_date, end_date, days, reason, source, created_at
		FROM leave_entries WHERE employee_id = ?
		ORDER BY created_at, id`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var leaveType, source, days string
		var startDate, endDate, reason, createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.EmployeeID, &leaveType, &startDate, &endDate,
			&days, &reason, &source, &createdAt); err != nil {
			return nil, err
		}
		e.LeaveType = leave.LeaveType(leaveType)
		e.Source = EntrySource(source)
		e.StartDate = startDate.String
		e.EndDate = endDate.String
		e.Reason = reason.String
		e.Days, _ = decimal.NewFromString(days)
		if createdAt.Valid {
			e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UsedByType aggregates consumed days per leave type for one employee.
// Adjustments with negative day counts reduce usage; the aggregate is
// floored at zero per type, matching what the backend reports to clients.
func (s *Store) UsedByType(ctx context.Context, employeeID string) (leave.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_type, days FROM leave_entries WHERE employee_id = ?`, employeeID)
	if err != nil {
		return leave.Usage{}, err
	}
	defer rows.Close()

	sums := map[leave.LeaveType]decimal.Decimal{}
	for rows.Next() {
		var leaveType, days string
		if err := rows.Scan(&leaveType, &days); err != nil {
			return leave.Usage{}, err
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			continue
		}
		lt := leave.LeaveType(leaveType)
		sums[lt] = sums[lt].Add(d)
	}
	if err := rows.Err(); err != nil {
		return leave.Usage{}, err
	}

	return leave.Usage{
		Paid:   leave.ClampZero(sums[leave.TypePaid]),
		Casual: leave.ClampZero(sums[leave.TypeCasual]),
		Sick:   leave.ClampZero(sums[leave.TypeSick]),
		Unpaid: leave.ClampZero(sums[leave.TypeUnpaid]),
	}, nil
}

// =============================================================================
// BALANCE SNAPSHOTS - Monthly derived-balance audit trail
// =============================================================================

// Snapshot is a materialized balance at a month boundary. Purely derived
// data for audit and history; never read back into the calculator.
type Snapshot struct {
	ID             string
	EmployeeID     string
	AsOf           string // "2006-01" month key
	Balances       leave.Balances
	TotalAvailable decimal.Decimal
	CreatedAt      time.Time
}

// SaveSnapshot stores a snapshot; duplicate (employee, as_of) pairs are
// ignored so the snapshot job is idempotent per month.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots
			(id, employee_id, as_of, paid, casual, sick, unpaid, total_available, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, as_of) DO NOTHING`,
		snap.ID, snap.EmployeeID, snap.AsOf,
		snap.Balances.Paid.String(), snap.Balances.Casual.String(),
		snap.Balances.Sick.String(), snap.Balances.Unpaid.String(),
		snap.TotalAvailable.String(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// HasSnapshot reports whether a snapshot exists for the month key.
func (s *Store) HasSnapshot(ctx context.Context, employeeID, asOf string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM balance_snapshots WHERE employee_id = ? AND as_of = ?`,
		employeeID, asOf).Scan(&count)
	return count > 0, err
}

// ListSnapshots returns an employee's snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, employeeID string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, as_of, paid, casual, sick, unpaid, total_available, created_at
		FROM balance_snapshots WHERE employee_id = ?
		ORDER BY as_of DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var paid, casual, sick, unpaid, total, createdAt string
		if err := rows.Scan(&snap.ID, &snap.EmployeeID, &snap.AsOf,
			&paid, &casual, &sick, &unpaid, &total, &createdAt); err != nil {
			return nil, err
		}
		snap.Balances.Paid, _ = decimal.NewFromString(paid)
		snap.Balances.Casual, _ = decimal.NewFromString(casual)
		snap.Balances.Sick, _ = decimal.NewFromString(sick)
		snap.Balances.Unpaid, _ = decimal.NewFromString(unpaid)
		snap.TotalAvailable, _ = decimal.NewFromString(total)
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Reset drops all data. Test helper only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"balance_snapshots", "leave_entries", "employees", "leave_policy"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
