// Package batcher accumulates completed shipments per analysis and
// persists them in batches without blocking the producer.
package batcher

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
	// DefaultBatchSize triggers an immediate flush once pending items
	// reach it.
	DefaultBatchSize = 50

	// DefaultIdleTimeout flushes a partial batch after this much time
	// without new additions.
	DefaultIdleTimeout = 30 * time.Second

	// writeTimeout bounds one background persistence call.
	writeTimeout = 30 * time.Second
)

// Writer persists one flushed batch of completed shipments.
type Writer interface {
	WriteBatch(ctx context.Context, analysisID uuid.UUID, items []models.CompletedShipment) error
}

// Options tunes a Batcher. Zero values fall back to the defaults.
type Options struct {
	BatchSize   int
	IdleTimeout time.Duration

	// OnFlushed runs after a batch is persisted successfully.
	OnFlushed func(count int)

	// OnError runs when a background write fails. The failure never
	// propagates to the producer.
	OnError func(count int, err error)
}

// Batcher collects completed shipments for one analysis. Reaching the
// batch size flushes immediately; otherwise a flush fires after the idle
// timeout, re-armed on every addition. Flushed batches go to a single
// background writer goroutine, so at most one persistence call is in
// flight and no shipment is ever counted in two flushes.
type Batcher struct {
	analysisID uuid.UUID
	writer     Writer
	logger     *zap.Logger
	batchSize  int
	idle       *timerx.Debouncer
	onFlushed  func(count int)
	onError    func(count int, err error)

	mu      sync.Mutex
	pending []models.CompletedShipment
	closed  bool

	writeCh chan []models.CompletedShipment
	wg      sync.WaitGroup
}

// New creates a Batcher and starts its background writer.
func New(analysisID uuid.UUID, writer Writer, logger *zap.Logger, opts Options) *Batcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	b := &Batcher{
		analysisID: analysisID,
		writer:     writer,
		logger:     logger,
		batchSize:  opts.BatchSize,
		idle:       timerx.NewDebouncer(opts.IdleTimeout),
		onFlushed:  opts.OnFlushed,
		onError:    opts.OnError,
		writeCh:    make(chan []models.CompletedShipment, 64),
	}

	b.wg.Add(1)
	go b.writeLoop()

	return b
}

// Add appends a completed shipment. It returns immediately; persistence
// happens in the background.
func (b *Batcher) Add(item models.CompletedShipment) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn("Completed shipment dropped after finalize",
			zap.String("analysis_id", b.analysisID.String()),
			zap.Int("shipment_id", item.Record.ID),
		)
		return
	}

	b.pending = append(b.pending, item)
	if len(b.pending) >= b.batchSize {
		b.flushLocked()
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.idle.Debounce(b.Flush)
}

// Flush hands any pending shipments to the background writer. Callers
// proceed immediately; write failures surface only through logs and the
// error callback.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.flushLocked()
}

// Pending returns the number of shipments not yet handed to the writer.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Finalize flushes the remainder and waits for the background writer to
// drain. It must be called at analysis end so a partial batch is not
// lost. Additions after Finalize are dropped.
func (b *Batcher) Finalize(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.idle.Cancel()
	if len(b.pending) > 0 {
		b.writeCh <- b.pending
		b.pending = nil
	}
	close(b.writeCh)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flushLocked swaps out the pending list and enqueues it. Caller holds
// b.mu.
func (b *Batcher) flushLocked() {
	b.idle.Cancel()
	if len(b.pending) == 0 {
		return
	}
	batch := b.pending
	b.pending = nil
	b.writeCh <- batch
}

func (b *Batcher) writeLoop() {
	defer b.wg.Done()
	for batch := range b.writeCh {
		b.persist(batch)
	}
}

func (b *Batcher) persist(batch []models.CompletedShipment) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := b.writer.WriteBatch(ctx, b.analysisID, batch); err != nil {
		b.logger.Error("Failed to persist rate batch",
			zap.String("analysis_id", b.analysisID.String()),
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
		if b.onError != nil {
			b.onError(len(batch), err)
		}
		return
	}

	b.logger.Debug("Rate batch persisted",
		zap.String("analysis_id", b.analysisID.String()),
		zap.Int("count", len(batch)),
	)
	if b.onFlushed != nil {
		b.onFlushed(len(batch))
	}
}
