/*
scheduler.go - Monthly analytics rollup scheduler

PURPOSE:
  Periodically freezes the applied/approved/rejected counts of every closed
  month into the analytics history, so the monthly series keeps its shape
  even if the request store is later reset or pruned.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A month is closed once the clock has moved past its last day
  - Months already present in the history are skipped (History.Record
    refuses duplicates), so running twice is harmless
  - The current month is never recorded; the dashboard derives it live

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRollupScheduler(svc, history, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - leave/history.go: The series being appended to
  - leave/analytics.go: MonthlyStats merges it with live data
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// RollupScheduler records closed months into the analytics history.
type RollupScheduler struct {
	Service       *leave.Service
	History       *leave.History
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	logger *zap.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRollupScheduler creates a new scheduler.
func NewRollupScheduler(svc *leave.Service, history *leave.History, logger *zap.Logger) *RollupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupScheduler{
		Service:       svc,
		History:       history,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
		logger:        logger.Named("rollup"),
	}
}

// Start begins the scheduler.
func (rs *RollupScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan bool)
	rs.wg.Add(1)

	go rs.run()

	rs.logger.Info("started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler.
func (rs *RollupScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RollupScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndRecord(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndRecord(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// checkAndRecord returns the months newly added to the history.
// A recorded month is frozen: MonthlyStats prefers the history copy, so a
// later decision on a request from that month does not change its counts.
func (rs *RollupScheduler) checkAndRecord(ctx context.Context) []string {
	current := leave.DateOf(rs.now()).MonthKey()

	requests, err := rs.Service.List(ctx)
	if err != nil {
		rs.logger.Error("failed to list requests", zap.Error(err))
		return nil
	}

	recorded := make([]string, 0)
	skipped := 0
	for _, b := range leave.BucketsFromRequests(requests) {
		if b.Month >= current {
			continue
		}
		if !rs.History.Record(b) {
			skipped++
			continue
		}
		recorded = append(recorded, b.Month)
	}

	if len(recorded) > 0 {
		rs.logger.Info("months recorded",
			zap.Strings("months", recorded),
			zap.Int("skipped", skipped))
	}
	return recorded
}

// RunNow triggers an immediate check (for testing/admin) and returns the
// months it recorded.
func (rs *RollupScheduler) RunNow(ctx context.Context) []string {
	return rs.checkAndRecord(ctx)
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *RollupScheduler) GetNextRunTime() time.Time {
	return rs.now().Add(rs.CheckInterval)
}
