// Package autosave debounces partial-field updates to an analysis record.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"rate-analysis-service/pkg/timerx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce is the quiet window before a triggered save fires.
	DefaultDebounce = 1500 * time.Millisecond

	// saveTimeout bounds one background save.
	saveTimeout = 10 * time.Second
)

// ErrClosed is returned by SaveNow after the controller was closed.
var ErrClosed = errors.New("autosave: controller closed")

// Saver persists one partial update to an analysis record. Implementations
// stamp the record's updated-at timestamp on every write.
type Saver interface {
	SaveAnalysisFields(ctx context.Context, analysisID uuid.UUID, fields map[string]interface{}) error
}

// Options tunes a Controller. Zero values fall back to the defaults.
type Options struct {
	Debounce time.Duration

	// OnError runs when a debounced background save fails. Debounced
	// save failures never propagate to the trigger caller.
	OnError func(err error)
}

// Controller coalesces rapid update bursts into one write. TriggerSave
// restarts the quiet window and replaces the pending payload, so only the
// last payload within a burst is persisted. SaveNow bypasses the window.
// After Close, no new write starts.
type Controller struct {
	analysisID uuid.UUID
	saver      Saver
	logger     *zap.Logger
	debounce   *timerx.Debouncer
	onError    func(err error)

	mu      sync.Mutex
	payload map[string]interface{}
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Controller for one analysis record.
func New(analysisID uuid.UUID, saver Saver, logger *zap.Logger, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Controller{
		analysisID: analysisID,
		saver:      saver,
		logger:     logger,
		debounce:   timerx.NewDebouncer(opts.Debounce),
		onError:    opts.OnError,
	}
}

// TriggerSave schedules fields to be written once the quiet window
// elapses without another trigger. The pending payload is replaced, not
// merged.
func (c *Controller) TriggerSave(fields map[string]interface{}) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.payload = fields
	c.mu.Unlock()

	c.debounce.Debounce(c.fire)
}

// SaveNow cancels any pending debounced write and persists fields
// immediately. Unlike debounced saves, the error returns to the caller.
func (c *Controller) SaveNow(ctx context.Context, fields map[string]interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.payload = nil
	c.mu.Unlock()
	c.debounce.Cancel()

	return c.saver.SaveAnalysisFields(ctx, c.analysisID, fields)
}

// Close cancels the pending write and waits for in-flight saves. No write
// starts after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.payload = nil
	c.mu.Unlock()

	c.debounce.Cancel()
	c.wg.Wait()
}

// fire runs on the debounce timer's goroutine once the quiet window
// elapses.
func (c *Controller) fire() {
	c.mu.Lock()
	if c.closed || c.payload == nil {
		c.mu.Unlock()
		return
	}
	fields := c.payload
	c.payload = nil
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := c.saver.SaveAnalysisFields(ctx, c.analysisID, fields); err != nil {
			c.logger.Error("Auto-save failed",
				zap.String("analysis_id", c.analysisID.String()),
				zap.Error(err),
			)
			if c.onError != nil {
				c.onError(err)
			}
		}
	}()
}
