package tracker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rate-analysis-service/models"
	"rate-analysis-service/tracker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Mock Fetcher ---

type mockFetcher struct {
	mu      sync.Mutex
	status  models.AnalysisStatus
	fetches int32
}

func (m *mockFetcher) FetchStatus(_ context.Context, _ uuid.UUID) (*models.AnalysisStatus, error) {
	atomic.AddInt32(&m.fetches, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status
	return &s, nil
}

func (m *mockFetcher) set(s models.AnalysisStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

func (m *mockFetcher) count() int32 {
	return atomic.LoadInt32(&m.fetches)
}

func inProgress(processed, total int, revision int64) models.AnalysisStatus {
	return models.AnalysisStatus{
		Status:             models.AnalysisStatusInProgress,
		TotalShipments:     total,
		ProcessedShipments: processed,
		Revision:           revision,
	}
}

// --- Tests ---

func TestTracker_ImmediateFetchOnStart(t *testing.T) {
	f := &mockFetcher{}
	f.set(inProgress(10, 100, 1))

	tr := tracker.New(uuid.New(), f, zap.NewNop(), tracker.Options{PollInterval: time.Hour})
	defer tr.Stop()

	updates := make(chan models.AnalysisStatus, 1)
	tr.Subscribe(func(s models.AnalysisStatus) { updates <- s })
	tr.Start(context.Background())

	select {
	case s := <-updates:
		assert.Equal(t, 10, s.ProcessedShipments)
		assert.InDelta(t, 10.0, s.Percent, 0.0001)
	case <-time.After(time.Second):
		t.Fatal("No immediate fetch before the first interval tick")
	}
}

func TestTracker_PollsOnInterval(t *testing.T) {
	f := &mockFetcher{}
	f.set(inProgress(1, 10, 1))

	tr := tracker.New(uuid.New(), f, zap.NewNop(), tracker.Options{PollInterval: 25 * time.Millisecond})
	defer tr.Stop()

	tr.Start(context.Background())
	time.Sleep(150 * time.Millisecond)

	assert.GreaterOrEqual(t, f.count(), int32(4), "Immediate fetch plus interval polls")
}

func TestTracker_TerminalStatusStopsPolling(t *testing.T) {
	f := &mockFetcher{}
	f.set(models.AnalysisStatus{Status: models.AnalysisStatusCompleted, TotalShipments: 5, ProcessedShipments: 5, Revision: 9})

	tr := tracker.New(uuid.New(), f, zap.NewNop(), tracker.Options{PollInterval: 20 * time.Millisecond})
	defer tr.Stop()

	tr.Start(context.Background())

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Tracker never observed the terminal status")
	}

	time.Sleep(50 * time.Millisecond) // let any in-flight tick drain
	settled := f.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, f.count(), "No polls after a terminal status")
	assert.Equal(t, models.AnalysisStatusCompleted, tr.Status().Status)
}

func TestTracker_ApplyAcceptsNewerRevision(t *testing.T) {
	tr := tracker.New(uuid.New(), &mockFetcher{}, zap.NewNop(), tracker.Options{PollInterval: time.Hour})
	defer tr.Stop()

	assert.True(t, tr.Apply(inProgress(10, 100, 1)))
	assert.True(t, tr.Apply(inProgress(20, 100, 2)))
	assert.Equal(t, 20, tr.Status().ProcessedShipments)
}

func TestTracker_ApplyDropsStaleRevision(t *testing.T) {
	tr := tracker.New(uuid.New(), &mockFetcher{}, zap.NewNop(), tracker.Options{PollInterval: time.Hour})
	defer tr.Stop()

	assert.True(t, tr.Apply(inProgress(50, 100, 5)))
	assert.False(t, tr.Apply(inProgress(30, 100, 3)), "An out-of-order push must not regress progress")
	assert.Equal(t, 50, tr.Status().ProcessedShipments)
	assert.InDelta(t, 50.0, tr.Status().Percent, 0.0001)
}

func TestTracker_PercentClamped(t *testing.T) {
	tr := tracker.New(uuid.New(), &mockFetcher{}, zap.NewNop(), tracker.Options{PollInterval: time.Hour})
	defer tr.Stop()

	tr.Apply(inProgress(150, 100, 1))
	assert.Equal(t, 100.0, tr.Status().Percent)

	tr.Apply(inProgress(0, 0, 2))
	assert.Equal(t, 0.0, tr.Status().Percent, "Zero total reports zero percent")
}

func TestTracker_PushTerminalStopsPolling(t *testing.T) {
	f := &mockFetcher{}
	f.set(inProgress(1, 10, 1))

	tr := tracker.New(uuid.New(), f, zap.NewNop(), tracker.Options{PollInterval: 25 * time.Millisecond})
	defer tr.Stop()

	tr.Start(context.Background())
	time.Sleep(60 * time.Millisecond)

	accepted := tr.Apply(models.AnalysisStatus{Status: models.AnalysisStatusFailed, TotalShipments: 10, ProcessedShipments: 4, Revision: 50})
	assert.True(t, accepted)

	<-tr.Done()
	time.Sleep(50 * time.Millisecond) // let any in-flight tick drain
	settled := f.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, f.count(), "A pushed terminal status also stops the interval")
}

func TestTracker_ApplyAfterStopRejected(t *testing.T) {
	tr := tracker.New(uuid.New(), &mockFetcher{}, zap.NewNop(), tracker.Options{})
	tr.Stop()
	tr.Stop()

	assert.False(t, tr.Apply(inProgress(1, 10, 1)))
}
