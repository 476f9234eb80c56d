package batcher_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rate-analysis-service/batcher"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Mock Writer ---

type mockWriter struct {
	mu      sync.Mutex
	batches [][]models.CompletedShipment
	wrote   chan int
	block   chan struct{}
	err     error

	inFlight    int32
	maxInFlight int32
}

func newMockWriter() *mockWriter {
	return &mockWriter{wrote: make(chan int, 16)}
}

func (m *mockWriter) WriteBatch(_ context.Context, _ uuid.UUID, items []models.CompletedShipment) error {
	cur := atomic.AddInt32(&m.inFlight, 1)
	for {
		max := atomic.LoadInt32(&m.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&m.maxInFlight, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&m.inFlight, -1)

	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	m.batches = append(m.batches, items)
	m.mu.Unlock()
	m.wrote <- len(items)
	return m.err
}

func (m *mockWriter) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batches))
	for i, b := range m.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func shipment(id int) models.CompletedShipment {
	return models.CompletedShipment{Record: models.ShipmentRecord{ID: id}}
}

func awaitWrite(t *testing.T, w *mockWriter, within time.Duration) int {
	t.Helper()
	select {
	case n := <-w.wrote:
		return n
	case <-time.After(within):
		t.Fatal("Timed out waiting for a batch write")
		return 0
	}
}

// --- Tests ---

func TestBatcher_FlushesAtThreshold(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   50,
		IdleTimeout: time.Hour,
	})
	defer b.Finalize(context.Background())

	for i := 0; i < 50; i++ {
		b.Add(shipment(i))
	}

	n := awaitWrite(t, w, time.Second)
	assert.Equal(t, 50, n, "Reaching the threshold flushes without waiting for the idle timeout")
	assert.Equal(t, 0, b.Pending())
}

func TestBatcher_IdleTimeoutFlushesPartial(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   50,
		IdleTimeout: 50 * time.Millisecond,
	})
	defer b.Finalize(context.Background())

	b.Add(shipment(1))
	b.Add(shipment(2))
	b.Add(shipment(3))

	n := awaitWrite(t, w, time.Second)
	assert.Equal(t, 3, n)
}

func TestBatcher_IdleTimerResetsOnAdd(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   50,
		IdleTimeout: 80 * time.Millisecond,
	})
	defer b.Finalize(context.Background())

	for i := 0; i < 3; i++ {
		b.Add(shipment(i))
		time.Sleep(40 * time.Millisecond)
	}

	select {
	case <-w.wrote:
		t.Fatal("Flush fired while additions kept arriving inside the idle window")
	default:
	}

	n := awaitWrite(t, w, time.Second)
	assert.Equal(t, 3, n, "One flush carrying everything after the quiet window")
}

func TestBatcher_FinalizeFlushesRemainder(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   50,
		IdleTimeout: time.Hour,
	})

	for i := 0; i < 7; i++ {
		b.Add(shipment(i))
	}

	err := b.Finalize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int{7}, w.batchSizes())
}

func TestBatcher_NoShipmentCountedTwice(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   50,
		IdleTimeout: time.Hour,
	})

	for i := 0; i < 60; i++ {
		b.Add(shipment(i))
	}
	err := b.Finalize(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, []int{50, 10}, w.batchSizes())

	seen := make(map[int]bool)
	w.mu.Lock()
	for _, batch := range w.batches {
		for _, item := range batch {
			assert.False(t, seen[item.Record.ID], "Shipment %d appeared in two flushes", item.Record.ID)
			seen[item.Record.ID] = true
		}
	}
	w.mu.Unlock()
	assert.Len(t, seen, 60)
}

func TestBatcher_AddAfterFinalizeDropped(t *testing.T) {
	w := newMockWriter()
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{BatchSize: 50})

	assert.NoError(t, b.Finalize(context.Background()))
	b.Add(shipment(1))
	assert.NoError(t, b.Finalize(context.Background()), "Finalize is idempotent")

	assert.Empty(t, w.batchSizes())
}

func TestBatcher_SingleWriterInFlight(t *testing.T) {
	w := newMockWriter()
	w.block = make(chan struct{})
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   2,
		IdleTimeout: time.Hour,
	})

	b.Add(shipment(1))
	b.Add(shipment(2)) // first flush, writer blocks
	b.Add(shipment(3))
	b.Add(shipment(4)) // second flush queues behind the first

	time.Sleep(50 * time.Millisecond)
	close(w.block)

	assert.Equal(t, 2, awaitWrite(t, w, time.Second))
	assert.Equal(t, 2, awaitWrite(t, w, time.Second))
	assert.NoError(t, b.Finalize(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(&w.maxInFlight),
		"At most one persistence call may run at a time")
}

func TestBatcher_WriteErrorReachesCallbackOnly(t *testing.T) {
	w := newMockWriter()
	w.err = errors.New("insert failed")

	var cbCount int32
	var cbErr atomic.Value
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   2,
		IdleTimeout: time.Hour,
		OnError: func(count int, err error) {
			atomic.AddInt32(&cbCount, int32(count))
			cbErr.Store(err)
		},
	})

	b.Add(shipment(1))
	b.Add(shipment(2))

	awaitWrite(t, w, time.Second)
	assert.NoError(t, b.Finalize(context.Background()), "Producer never sees the write failure")
	assert.Equal(t, int32(2), atomic.LoadInt32(&cbCount))
	assert.EqualError(t, cbErr.Load().(error), "insert failed")
}

func TestBatcher_OnFlushedCallback(t *testing.T) {
	w := newMockWriter()

	var flushed int32
	b := batcher.New(uuid.New(), w, zap.NewNop(), batcher.Options{
		BatchSize:   3,
		IdleTimeout: time.Hour,
		OnFlushed: func(count int) {
			atomic.AddInt32(&flushed, int32(count))
		},
	})

	for i := 0; i < 3; i++ {
		b.Add(shipment(i))
	}
	awaitWrite(t, w, time.Second)
	assert.NoError(t, b.Finalize(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&flushed))
}
