package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"reflect"
	"sync"
	"time"

	"procurehub/internal/kvstore"
)

// Save statuses
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// DefaultInterval is the debounce window between the last edit and the save.
const DefaultInterval = 15 * time.Second

// State is a snapshot of the engine's save status. LastSaved is zero until
// the first successful save and survives failed attempts unchanged.
type State struct {
	Status    Status
	LastSaved time.Time
	Err       error
}

// RemoteSaveFunc persists the authoritative copy of a draft. The version is a
// monotonic per-key counter; implementations should discard writes whose
// version is below the one already stored.
type RemoteSaveFunc func(ctx context.Context, key string, payload json.RawMessage, version int64) error

// Config configures a Saver.
type Config struct {
	Key      string
	Interval time.Duration  // 0 = DefaultInterval
	Remote   RemoteSaveFunc // optional; authoritative sink when present
	Cache    kvstore.Store  // local resilience cache, written on every cycle
	OnSaved  func(at time.Time)
	Enabled  bool
}

// Saver watches a draft value and persists it after each quiet period.
// Saves for one key are strictly serialized: at most one cycle is in flight
// and at most one value is pending (a newer value replaces the queued one),
// so a slow earlier save can never clobber a faster later one.
type Saver struct {
	cfg Config
	deb *Debouncer[any]

	mu       sync.Mutex
	state    State
	baseline any // last successfully saved value (or the initial value)
	hasBase  bool
	version  int64

	pending chan any
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSaver creates the engine and records the initial value as the baseline
// without saving it — an unedited draft is never persisted.
func NewSaver(cfg Config, initial any) *Saver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	s := &Saver{
		cfg:      cfg,
		state:    State{Status: StatusIdle},
		baseline: initial,
		hasBase:  true,
		pending:  make(chan any, 1),
		done:     make(chan struct{}),
	}
	s.deb = NewDebouncer[any](cfg.Interval, s.trigger)

	s.wg.Add(1)
	go s.loop()
	return s
}

// Update feeds the current draft value into the debounce window.
func (s *Saver) Update(v any) {
	if !s.cfg.Enabled {
		return
	}
	s.deb.Update(v)
}

// Flush forces a pending debounced value through immediately.
func (s *Saver) Flush() {
	s.deb.Flush()
}

// State returns the current save status snapshot.
func (s *Saver) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// trigger runs when the debounce window elapses. Unchanged values are
// dropped; otherwise the value takes the single pending slot, replacing any
// older value still waiting there.
func (s *Saver) trigger(v any) {
	s.mu.Lock()
	unchanged := s.hasBase && reflect.DeepEqual(v, s.baseline)
	s.mu.Unlock()
	if unchanged {
		return
	}

	for {
		select {
		case s.pending <- v:
			return
		default:
		}
		// Slot occupied by an older value — evict it and retry
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *Saver) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case v := <-s.pending:
			s.save(v)
		}
	}
}

func (s *Saver) save(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.mu.Lock()
		s.state.Status = StatusError
		s.state.Err = err
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.version++
	version := s.version
	s.state.Status = StatusSaving
	s.state.Err = nil
	s.mu.Unlock()

	ctx := context.Background()

	var remoteErr error
	if s.cfg.Remote != nil {
		remoteErr = s.cfg.Remote(ctx, s.cfg.Key, payload, version)
	}

	// The cache write happens on every cycle regardless of the remote
	// outcome: it is the resilience copy. Remote stays authoritative, so a
	// cache failure never fails the save.
	if s.cfg.Cache != nil {
		if cacheErr := s.cfg.Cache.Set(ctx, s.cfg.Key, payload, 0); cacheErr != nil {
			log.Printf("autosave: cache write failed for key %s: %v", s.cfg.Key, cacheErr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if remoteErr != nil {
		s.state.Status = StatusError
		s.state.Err = remoteErr
		// LastSaved keeps its previous value
		return
	}

	now := time.Now()
	s.state.Status = StatusSaved
	s.state.LastSaved = now
	s.baseline = v
	s.hasBase = true

	if s.cfg.OnSaved != nil {
		go s.cfg.OnSaved(now)
	}
}

// Restore reads the cached copy for the saver's key. Absent or malformed
// content fails closed with a nil payload and no error.
func (s *Saver) Restore(ctx context.Context) (json.RawMessage, error) {
	return Restore(ctx, s.cfg.Cache, s.cfg.Key)
}

// Clear removes the cached copy and resets the status to idle with no
// last-saved time.
func (s *Saver) Clear(ctx context.Context) error {
	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.Delete(ctx, s.cfg.Key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = State{Status: StatusIdle}
	s.hasBase = false
	s.mu.Unlock()
	return nil
}

// Close cancels the pending debounce timer and stops the save loop. An
// in-flight save is allowed to finish.
func (s *Saver) Close() {
	s.deb.Close()
	close(s.done)
	s.wg.Wait()
}

// Restore reads and validates a cached draft payload directly from a store.
func Restore(ctx context.Context, cache kvstore.Store, key string) (json.RawMessage, error) {
	if cache == nil {
		return nil, nil
	}
	raw, err := cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}
