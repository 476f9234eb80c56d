// Package tracker follows analysis job status by polling, merged with
// push updates arriving out of band.
package tracker

import (
	"context"
	"sync"
	"time"

	"rate-analysis-service/models"
	"rate-analysis-service/pkg/timerx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the fixed delay between status fetches.
	DefaultPollInterval = 3 * time.Second

	// fetchTimeout bounds one status fetch.
	fetchTimeout = 10 * time.Second
)

// StatusFetcher loads the current status record for an analysis.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, analysisID uuid.UUID) (*models.AnalysisStatus, error)
}

// Options tunes a Tracker. Zero values fall back to the defaults.
type Options struct {
	PollInterval time.Duration
}

// Tracker follows one analysis until it reaches a terminal status. Start
// issues an immediate fetch and then polls on a fixed interval; Apply
// feeds push updates between polls. Updates carry a monotonic revision
// and anything older than the current revision is dropped, so an
// out-of-order push can never regress displayed progress. A terminal
// status stops the polling interval.
type Tracker struct {
	analysisID uuid.UUID
	fetcher    StatusFetcher
	logger     *zap.Logger
	interval   time.Duration
	timers     *timerx.Set

	mu       sync.Mutex
	current  models.AnalysisStatus
	subs     []func(models.AnalysisStatus)
	started  bool
	stopped  bool
	terminal bool
	stopPoll func()

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Tracker for one analysis.
func New(analysisID uuid.UUID, fetcher StatusFetcher, logger *zap.Logger, opts Options) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Tracker{
		analysisID: analysisID,
		fetcher:    fetcher,
		logger:     logger,
		interval:   opts.PollInterval,
		timers:     timerx.NewSet(),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a callback invoked with every accepted status
// update. Register before Start to observe the first fetch.
func (t *Tracker) Subscribe(fn func(models.AnalysisStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Start begins tracking: one immediate fetch, then interval polls.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.stopPoll = t.timers.Every(t.interval, func() { t.poll(ctx) })
	t.mu.Unlock()

	go t.poll(ctx)
}

// Apply merges a status update from any source. It reports whether the
// update was accepted; updates older than the current revision are
// dropped.
func (t *Tracker) Apply(status models.AnalysisStatus) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	if status.Revision < t.current.Revision {
		t.mu.Unlock()
		t.logger.Debug("Dropping stale status update",
			zap.String("analysis_id", t.analysisID.String()),
			zap.Int64("revision", status.Revision),
			zap.Int64("current_revision", t.current.Revision),
		)
		return false
	}

	status.Percent = models.ProgressPercent(status.ProcessedShipments, status.TotalShipments)
	t.current = status

	terminal := models.IsTerminalStatus(status.Status)
	if terminal {
		t.terminal = true
	}
	stopPoll := t.stopPoll
	subs := append(([]func(models.AnalysisStatus))(nil), t.subs...)
	t.mu.Unlock()

	if terminal {
		if stopPoll != nil {
			stopPoll()
		}
		t.closeDone()
	}

	for _, fn := range subs {
		fn(status)
	}
	return true
}

// Status returns the latest accepted status.
func (t *Tracker) Status() models.AnalysisStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Done is closed once a terminal status is observed or the tracker is
// stopped.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Stop cancels polling. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.timers.Stop()
	t.closeDone()
}

func (t *Tracker) closeDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

func (t *Tracker) poll(ctx context.Context) {
	t.mu.Lock()
	if t.stopped || t.terminal {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	status, err := t.fetcher.FetchStatus(fetchCtx, t.analysisID)
	if err != nil {
		// Transient fetch failures wait for the next tick
		t.logger.Warn("Status poll failed",
			zap.String("analysis_id", t.analysisID.String()),
			zap.Error(err),
		)
		return
	}

	t.Apply(*status)
}
