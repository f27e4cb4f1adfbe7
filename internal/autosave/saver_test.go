package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"procurehub/internal/kvstore"
)

type remoteRecorder struct {
	mu       sync.Mutex
	calls    []remoteCall
	failWith error
}

type remoteCall struct {
	key     string
	payload string
	version int64
}

func (r *remoteRecorder) save(_ context.Context, key string, payload json.RawMessage, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.calls = append(r.calls, remoteCall{key: key, payload: string(payload), version: version})
	return nil
}

func (r *remoteRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *remoteRecorder) last() remoteCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

type draftForm struct {
	Title  string `json:"title"`
	Budget int    `json:"budget"`
}

func TestSaverDoesNotSaveInitialValue(t *testing.T) {
	remote := &remoteRecorder{}
	s := NewSaver(Config{
		Key:      "draft:1",
		Interval: 20 * time.Millisecond,
		Remote:   remote.save,
		Cache:    kvstore.NewMemoryStore(),
		Enabled:  true,
	}, draftForm{Title: "untouched"})
	defer s.Close()

	time.Sleep(80 * time.Millisecond)

	if remote.count() != 0 {
		t.Errorf("initial value was saved: %d calls", remote.count())
	}
	if st := s.State(); st.Status != StatusIdle {
		t.Errorf("expected idle status, got %s", st.Status)
	}
}

func TestSaverCoalescesRapidEditsIntoOneSave(t *testing.T) {
	remote := &remoteRecorder{}
	s := NewSaver(Config{
		Key:      "draft:1",
		Interval: 30 * time.Millisecond,
		Remote:   remote.save,
		Enabled:  true,
	}, draftForm{})
	defer s.Close()

	for i := 1; i <= 4; i++ {
		s.Update(draftForm{Title: "t", Budget: i})
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool { return remote.count() == 1 })

	call := remote.last()
	if call.key != "draft:1" {
		t.Errorf("unexpected key %q", call.key)
	}
	if call.version != 1 {
		t.Errorf("expected version 1, got %d", call.version)
	}
	var got draftForm
	if err := json.Unmarshal([]byte(call.payload), &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got.Budget != 4 {
		t.Errorf("expected final edit (budget 4), got %+v", got)
	}

	waitFor(t, time.Second, func() bool { return s.State().Status == StatusSaved })
	if s.State().LastSaved.IsZero() {
		t.Error("LastSaved not set after successful save")
	}
}

func TestSaverSkipsUnchangedValue(t *testing.T) {
	remote := &remoteRecorder{}
	initial := draftForm{Title: "same"}
	s := NewSaver(Config{
		Key:      "draft:1",
		Interval: 20 * time.Millisecond,
		Remote:   remote.save,
		Enabled:  true,
	}, initial)
	defer s.Close()

	s.Update(draftForm{Title: "same"})
	time.Sleep(80 * time.Millisecond)

	if remote.count() != 0 {
		t.Errorf("unchanged value was saved: %d calls", remote.count())
	}
}

func TestSaverDisabledIgnoresUpdates(t *testing.T) {
	remote := &remoteRecorder{}
	s := NewSaver(Config{
		Key:      "draft:1",
		Interval: 20 * time.Millisecond,
		Remote:   remote.save,
		Enabled:  false,
	}, draftForm{})
	defer s.Close()

	s.Update(draftForm{Title: "edited"})
	time.Sleep(80 * time.Millisecond)

	if remote.count() != 0 {
		t.Errorf("disabled saver still saved: %d calls", remote.count())
	}
}

func TestSaverRemoteFailureKeepsLastSavedAndWritesCache(t *testing.T) {
	cache := kvstore.NewMemoryStore()
	remote := &remoteRecorder{}
	s := NewSaver(Config{
		Key:      "draft:1",
		Interval: 10 * time.Millisecond,
		Remote:   remote.save,
		Cache:    cache,
		Enabled:  true,
	}, draftForm{})
	defer s.Close()

	// First save succeeds
	s.Update(draftForm{Title: "v1"})
	waitFor(t, time.Second, func() bool { return s.State().Status == StatusSaved })
	firstSaved := s.State().LastSaved

	// Second save fails remotely
	remote.mu.Lock()
	remote.failWith = errors.New("remote down")
	remote.mu.Unlock()

	s.Update(draftForm{Title: "v2"})
	waitFor(t, time.Second, func() bool { return s.State().Status == StatusError })

	st := s.State()
	if st.Err == nil {
		t.Error("expected error in state")
	}
	if !st.LastSaved.Equal(firstSaved) {
		t.Errorf("LastSaved changed on a failed save: %v vs %v", st.LastSaved, firstSaved)
	}

	// The failed cycle still wrote the resilience copy
	raw, err := cache.Get(context.Background(), "draft:1")
	if err != nil {
		t.Fatalf("cache read failed: %v", err)
	}
	var cached draftForm
	if err := json.Unmarshal(raw, &cached); err != nil {
		t.Fatalf("cached payload invalid: %v", err)
	}
	if cached.Title != "v2" {
		t.Errorf("cache holds %q, want the failed value v2", cached.Title)
	}
}

func TestSaverRestoreRoundTrip(t *testing.T) {
	cache := kvstore.NewMemoryStore()
	s := NewSaver(Config{
		Key:      "draft:rt",
		Interval: 10 * time.Millisecond,
		Cache:    cache,
		Enabled:  true,
	}, draftForm{})
	defer s.Close()

	s.Update(draftForm{Title: "restore me", Budget: 9})
	waitFor(t, time.Second, func() bool { return s.State().Status == StatusSaved })

	raw, err := s.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	var got draftForm
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("restored payload invalid: %v", err)
	}
	if got.Title != "restore me" || got.Budget != 9 {
		t.Errorf("restored %+v", got)
	}
}

func TestSaverClearThenRestoreReturnsNil(t *testing.T) {
	cache := kvstore.NewMemoryStore()
	s := NewSaver(Config{
		Key:      "draft:clear",
		Interval: 10 * time.Millisecond,
		Cache:    cache,
		Enabled:  true,
	}, draftForm{})
	defer s.Close()

	s.Update(draftForm{Title: "doomed"})
	waitFor(t, time.Second, func() bool { return s.State().Status == StatusSaved })

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	raw, err := s.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore after clear errored: %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil payload after clear, got %s", raw)
	}
	if st := s.State(); st.Status != StatusIdle || !st.LastSaved.IsZero() {
		t.Errorf("state not reset after clear: %+v", st)
	}
}

func TestRestoreIgnoresMalformedCacheContent(t *testing.T) {
	cache := kvstore.NewMemoryStore()
	ctx := context.Background()
	if err := cache.Set(ctx, "bad", []byte("{not json"), 0); err != nil {
		t.Fatal(err)
	}

	raw, err := Restore(ctx, cache, "bad")
	if err != nil {
		t.Fatalf("malformed content should not error: %v", err)
	}
	if raw != nil {
		t.Errorf("malformed content should restore nil, got %s", raw)
	}
}

func TestRestoreMissingKeyIsNotAnError(t *testing.T) {
	raw, err := Restore(context.Background(), kvstore.NewMemoryStore(), "absent")
	if err != nil {
		t.Fatalf("missing key should not error: %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil payload, got %s", raw)
	}
}
