package timerx

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_SingleCall(t *testing.T) {
	var called int32
	debouncer := NewDebouncer(50 * time.Millisecond)

	debouncer.Debounce(func() {
		atomic.AddInt32(&called, 1)
	})

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 1 {
		t.Errorf("Expected 1 call, got %d", called)
	}
}

func TestDebouncer_RapidCalls(t *testing.T) {
	var called int32
	var lastValue int32
	debouncer := NewDebouncer(50 * time.Millisecond)

	for i := 1; i <= 10; i++ {
		value := int32(i)
		debouncer.Debounce(func() {
			atomic.StoreInt32(&lastValue, value)
			atomic.AddInt32(&called, 1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 1 {
		t.Errorf("Expected 1 call for rapid succession, got %d", called)
	}

	if atomic.LoadInt32(&lastValue) != 10 {
		t.Errorf("Expected last value 10, got %d", lastValue)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var called int32
	debouncer := NewDebouncer(50 * time.Millisecond)

	debouncer.Debounce(func() {
		atomic.AddInt32(&called, 1)
	})

	time.Sleep(10 * time.Millisecond)
	debouncer.Cancel()

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 0 {
		t.Errorf("Expected 0 calls after cancel, got %d", called)
	}
}

func TestDebouncer_Immediate(t *testing.T) {
	var called int32
	debouncer := NewDebouncer(50 * time.Millisecond)

	debouncer.Debounce(func() {
		atomic.AddInt32(&called, 1)
	})

	debouncer.Immediate(func() {
		atomic.AddInt32(&called, 10)
	})

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 10 {
		t.Errorf("Expected 10 (immediate only), got %d", called)
	}
}

func TestSet_AfterFunc(t *testing.T) {
	var called int32
	set := NewSet()
	defer set.Stop()

	set.AfterFunc(20*time.Millisecond, func() {
		atomic.AddInt32(&called, 1)
	})

	time.Sleep(60 * time.Millisecond)

	if atomic.LoadInt32(&called) != 1 {
		t.Errorf("Expected 1 call, got %d", called)
	}
}

func TestSet_AfterFuncStop(t *testing.T) {
	var called int32
	set := NewSet()
	defer set.Stop()

	stop := set.AfterFunc(50*time.Millisecond, func() {
		atomic.AddInt32(&called, 1)
	})
	stop()

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 0 {
		t.Errorf("Expected 0 calls after stop, got %d", called)
	}
}

func TestSet_Every(t *testing.T) {
	var ticks int32
	set := NewSet()
	defer set.Stop()

	stop := set.Every(20*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
	})

	time.Sleep(110 * time.Millisecond)
	stop()
	got := atomic.LoadInt32(&ticks)

	if got < 3 {
		t.Errorf("Expected at least 3 ticks, got %d", got)
	}

	time.Sleep(60 * time.Millisecond)
	if after := atomic.LoadInt32(&ticks); after != got {
		t.Errorf("Expected no ticks after stop, got %d more", after-got)
	}
}

func TestSet_StopCancelsEverything(t *testing.T) {
	var fired int32
	set := NewSet()

	set.AfterFunc(50*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	set.Every(20*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	set.Stop()
	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&fired) != 0 {
		t.Errorf("Expected nothing to fire after Stop, got %d", fired)
	}
}

func TestSet_StopIsIdempotent(t *testing.T) {
	set := NewSet()
	set.AfterFunc(10*time.Millisecond, func() {})
	set.Stop()
	set.Stop()
}
