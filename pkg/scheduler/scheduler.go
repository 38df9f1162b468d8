// Package scheduler reindexes the source tree on a cron schedule and swaps
// the refreshed records into the serving store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

// Options configures a Scheduler.
type Options struct {
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@hourly".
	Schedule string
	// Timezone names the location Schedule is evaluated in. Empty means UTC.
	Timezone string
	// Timeout bounds one run. Zero means no limit.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Refresher runs reindex-then-reload cycles. It is shared by the cron
// schedule and on-demand reindex requests.
type Refresher struct {
	ix    *indexer.Indexer
	store *query.Store
	log   *zap.Logger

	mu   sync.Mutex
	last *models.IndexReport
}

// NewRefresher creates a refresher reloading store from the index ix keeps.
func NewRefresher(ix *indexer.Indexer, store *query.Store, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{ix: ix, store: store, log: log}
}

// Run reindexes and reloads the store. The store keeps serving the previous
// snapshot if either step fails.
func (r *Refresher) Run(ctx context.Context) (*models.IndexReport, error) {
	report, err := r.ix.Reindex(ctx)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if err := r.store.Reload(r.ix.IndexDir()); err != nil {
		return report, fmt.Errorf("reload store: %w", err)
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	r.log.Info("store refreshed",
		zap.String("run_id", report.RunID),
		zap.Int("records", report.Records),
		zap.Int("reextracted", report.Reextracted),
		zap.Int("failed", report.Failed),
		zap.String("generation", r.store.Generation()))
	return report, nil
}

// Last returns the report of the most recent successful run.
func (r *Refresher) Last() *models.IndexReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Scheduler runs a Refresher on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	refresh *Refresher
	timeout time.Duration
	log     *zap.Logger
}

// New validates the schedule and registers the refresh job. Overlapping
// runs are skipped.
func New(refresh *Refresher, opts Options) (*Scheduler, error) {
	if refresh == nil {
		return nil, errors.New("scheduler: nil refresher")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone for reindex schedule: %w", err)
		}
	}

	cl := cronLogger{log.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, refresh: refresh, timeout: opts.Timeout, log: log}

	if _, err := c.AddFunc(opts.Schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid reindex schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info("scheduled reindex started")
	if _, err := s.refresh.Run(ctx); err != nil {
		s.log.Error("scheduled reindex failed", zap.Error(err))
	}
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish or ctx to
// end.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next activation time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
