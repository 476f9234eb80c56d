package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rate-analysis-service/autosave"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Mock Saver ---

type mockSaver struct {
	mu    sync.Mutex
	saves []map[string]interface{}
	err   error
}

func (m *mockSaver) SaveAnalysisFields(_ context.Context, _ uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, fields)
	return m.err
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockSaver) last() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

// --- Tests ---

func TestController_DebouncedSaveKeepsLastPayload(t *testing.T) {
	saver := &mockSaver{}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 50 * time.Millisecond})
	defer c.Close()

	c.TriggerSave(map[string]interface{}{"total_savings": 10.0})
	c.TriggerSave(map[string]interface{}{"total_savings": 20.0})

	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, 1, saver.count(), "A burst of triggers produces one write")
	assert.Equal(t, 20.0, saver.last()["total_savings"])
}

func TestController_RapidTriggersDeferSave(t *testing.T) {
	saver := &mockSaver{}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 60 * time.Millisecond})
	defer c.Close()

	for i := 0; i < 4; i++ {
		c.TriggerSave(map[string]interface{}{"processed_shipments": i})
		time.Sleep(25 * time.Millisecond)
	}
	assert.Equal(t, 0, saver.count(), "No write while triggers keep arriving inside the window")

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, saver.count())
	assert.Equal(t, 3, saver.last()["processed_shipments"])
}

func TestController_SaveNowBypassesDebounce(t *testing.T) {
	saver := &mockSaver{}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 80 * time.Millisecond})
	defer c.Close()

	c.TriggerSave(map[string]interface{}{"status": "in_progress"})
	err := c.SaveNow(context.Background(), map[string]interface{}{"status": "completed"})
	assert.NoError(t, err)

	assert.Equal(t, 1, saver.count())
	assert.Equal(t, "completed", saver.last()["status"])

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, saver.count(), "SaveNow supersedes the pending debounced write")
}

func TestController_SaveNowPropagatesError(t *testing.T) {
	saver := &mockSaver{err: errors.New("db down")}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 50 * time.Millisecond})
	defer c.Close()

	err := c.SaveNow(context.Background(), map[string]interface{}{"status": "completed"})
	assert.EqualError(t, err, "db down")
}

func TestController_CloseCancelsPendingWrite(t *testing.T) {
	saver := &mockSaver{}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 50 * time.Millisecond})

	c.TriggerSave(map[string]interface{}{"total_savings": 10.0})
	c.Close()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, saver.count(), "No write may start after teardown")
}

func TestController_TriggerAfterCloseIgnored(t *testing.T) {
	saver := &mockSaver{}
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{Debounce: 30 * time.Millisecond})
	c.Close()

	c.TriggerSave(map[string]interface{}{"status": "failed"})
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 0, saver.count())

	err := c.SaveNow(context.Background(), map[string]interface{}{"status": "failed"})
	assert.ErrorIs(t, err, autosave.ErrClosed)
}

func TestController_DebouncedErrorReachesCallback(t *testing.T) {
	saver := &mockSaver{err: errors.New("write refused")}

	errCh := make(chan error, 1)
	c := autosave.New(uuid.New(), saver, zap.NewNop(), autosave.Options{
		Debounce: 30 * time.Millisecond,
		OnError:  func(err error) { errCh <- err },
	})
	defer c.Close()

	c.TriggerSave(map[string]interface{}{"total_savings": 5.0})

	select {
	case err := <-errCh:
		assert.EqualError(t, err, "write refused")
	case <-time.After(time.Second):
		t.Fatal("Error callback was never invoked")
	}
}
