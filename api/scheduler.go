/*
scheduler.go - Automated monthly balance snapshot scheduler

PURPOSE:
  Periodically materializes each employee's derived balance into the
  balance_snapshots table, one row per employee per calendar month.
  Snapshots are an audit trail; the balance endpoint always derives
  fresh from the ledger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Snapshot key is the "YYYY-MM" month; duplicates are skipped
  - Safe to run often: the store ignores conflicting writes

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(store, handler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: deriveDisplay (shared derivation)
  - store/sqlite: SaveSnapshot, HasSnapshot
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// SnapshotScheduler writes monthly balance snapshots in the background.
type SnapshotScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(store *sqlite.Store, handler *Handler, logger *slog.Logger) *SnapshotScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotScheduler{
		Store:         store,
		Handler:       handler,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SnapshotScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.Logger.Info("snapshot scheduler disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	ss.Logger.Info("snapshot scheduler started", slog.Duration("interval", ss.CheckInterval))
}

// Stop stops the scheduler and waits for the running pass to finish.
func (ss *SnapshotScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.Logger.Info("snapshot scheduler stopped")
	}
}

func (ss *SnapshotScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.snapshotAll()

	for {
		select {
		case <-ss.ticker.C:
			ss.snapshotAll()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SnapshotScheduler) snapshotAll() {
	ctx := context.Background()
	asOf := leave.MonthOf(ss.Handler.Now())
	monthKey := asOf.String()

	rec, err := ss.Store.GetPolicy(ctx)
	if err != nil {
		if !leave.IsNotFound(err) {
			ss.Logger.Error("snapshot: loading policy", slog.Any("error", err))
		}
		// No policy yet, nothing to snapshot.
		return
	}
	policy, err := factory.ParsePolicy(rec.ConfigJSON)
	if err != nil {
		ss.Logger.Error("snapshot: parsing policy", slog.Any("error", err))
		return
	}

	employees, err := ss.Store.ListEmployees(ctx)
	if err != nil {
		ss.Logger.Error("snapshot: listing employees", slog.Any("error", err))
		return
	}

	written := 0
	skipped := 0
	for _, emp := range employees {
		done, err := ss.Store.HasSnapshot(ctx, emp.ID, monthKey)
		if err != nil {
			ss.Logger.Error("snapshot: checking existing",
				slog.String("employee_id", emp.ID), slog.Any("error", err))
			continue
		}
		if done {
			skipped++
			continue
		}

		used, err := ss.Store.UsedByType(ctx, emp.ID)
		if err != nil {
			ss.Logger.Error("snapshot: aggregating usage",
				slog.String("employee_id", emp.ID), slog.Any("error", err))
			continue
		}
		disp := ss.Handler.deriveDisplay(policy, emp, used, asOf)

		snap := sqlite.Snapshot{
			EmployeeID:     emp.ID,
			AsOf:           monthKey,
			Balances:       disp.Balances,
			TotalAvailable: disp.TotalAvailable,
		}
		if err := ss.Store.SaveSnapshot(ctx, snap); err != nil {
			ss.Logger.Error("snapshot: saving",
				slog.String("employee_id", emp.ID), slog.Any("error", err))
			continue
		}
		written++
	}

	if written > 0 || skipped > 0 {
		ss.Logger.Info("snapshot pass completed",
			slog.String("month", monthKey),
			slog.Int("written", written),
			slog.Int("skipped", skipped))
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (ss *SnapshotScheduler) RunNow() {
	ss.snapshotAll()
}

// NextRunTime returns when the next scheduled pass will occur.
func (ss *SnapshotScheduler) NextRunTime() time.Time {
	return time.Now().Add(ss.CheckInterval)
}
