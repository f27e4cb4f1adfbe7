package autosave

import (
	"sync"
	"testing"
	"time"
)

// recorder collects every emission for later inspection.
type recorder struct {
	mu   sync.Mutex
	seen []int
}

func (r *recorder) record(v int) {
	r.mu.Lock()
	r.seen = append(r.seen, v)
	r.mu.Unlock()
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestDebouncerEmitsOnlyFinalValue(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer[int](30*time.Millisecond, rec.record)
	defer d.Close()

	for i := 1; i <= 5; i++ {
		d.Update(i)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	got := rec.values()
	if len(got) != 1 {
		t.Fatalf("expected exactly one emission, got %v", got)
	}
	if got[0] != 5 {
		t.Errorf("expected final value 5, got %d", got[0])
	}
}

func TestDebouncerNothingBeforeQuietPeriod(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer[int](80*time.Millisecond, rec.record)
	defer d.Close()

	d.Update(1)
	time.Sleep(20 * time.Millisecond)

	if got := rec.values(); len(got) != 0 {
		t.Fatalf("emitted before quiet period elapsed: %v", got)
	}
}

func TestDebouncerEachQuietPeriodEmitsOnce(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer[int](20*time.Millisecond, rec.record)
	defer d.Close()

	d.Update(1)
	time.Sleep(60 * time.Millisecond)
	d.Update(2)
	time.Sleep(60 * time.Millisecond)

	got := rec.values()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer[int](time.Hour, rec.record)
	defer d.Close()

	d.Update(42)
	d.Flush()

	if got := rec.values(); len(got) != 1 || got[0] != 42 {
		t.Errorf("expected flushed [42], got %v", got)
	}

	// Nothing left pending; a second flush is a no-op
	d.Flush()
	if got := rec.values(); len(got) != 1 {
		t.Errorf("second flush re-emitted: %v", got)
	}
}

func TestDebouncerCloseCancelsPending(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer[int](20*time.Millisecond, rec.record)

	d.Update(1)
	d.Close()
	d.Update(2) // ignored after Close

	time.Sleep(60 * time.Millisecond)

	if got := rec.values(); len(got) != 0 {
		t.Errorf("expected no emissions after Close, got %v", got)
	}
}
