package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"procurehub/internal/autosave"
	"procurehub/internal/kvstore"
	"procurehub/internal/model"
	"procurehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidPayload is returned when a draft payload is not valid JSON.
var ErrInvalidPayload = errors.New("draft payload is not valid JSON")

// --- DTOs ---

type SaveDraftDTO struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
	Version int64           `json:"version"` // optional client counter; 0 = server-assigned
}

type DraftResponse struct {
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
	Version int64           `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	// FromCache marks a payload recovered from the resilience cache rather
	// than the authoritative store.
	FromCache bool `json:"from_cache,omitempty"`
}

// --- Interface ---

// DraftService persists in-progress requirement forms. The database is the
// authoritative sink; every save also mirrors the payload into the key-value
// cache on the same cycle, and a cache failure never fails the save. Saves
// for one key are serialized so the last edit always wins regardless of
// arrival latency.
type DraftService interface {
	SaveDraft(ctx context.Context, key, userID string, req SaveDraftDTO) (*DraftResponse, error)
	RestoreDraft(ctx context.Context, key string) (*DraftResponse, error)
	ClearDraft(ctx context.Context, key, userID string) error
}

type draftService struct {
	drafts repository.DraftRepository
	cache  kvstore.Store
	audits repository.AuditRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-key save serialization
}

func NewDraftService(drafts repository.DraftRepository, cache kvstore.Store, audits repository.AuditRepository) DraftService {
	return &draftService{
		drafts: drafts,
		cache:  cache,
		audits: audits,
		locks:  make(map[string]*sync.Mutex),
	}
}

// --- Implementation ---

func (s *draftService) SaveDraft(ctx context.Context, key, userID string, req SaveDraftDTO) (*DraftResponse, error) {
	if !json.Valid(req.Payload) {
		return nil, ErrInvalidPayload
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.drafts.GetByKey(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		// Authoritative store unreachable: still refresh the resilience
		// cache before reporting the failure.
		s.writeCache(ctx, key, req.Payload)
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	version := req.Version
	if existing != nil {
		if version == 0 {
			version = existing.Version + 1
		} else if version <= existing.Version {
			// Stale snapshot — a newer save already landed. Discard silently
			// and report the stored state: last edit wins.
			return draftToResponse(existing), nil
		}

		// Unchanged payload: skip the write entirely
		if payloadEqual(existing.Payload, req.Payload) {
			return draftToResponse(existing), nil
		}
	} else if version == 0 {
		version = 1
	}

	draft := &model.Draft{
		Key:     key,
		Payload: string(req.Payload),
		Version: version,
		SavedAt: time.Now(),
	}
	if uid, parseErr := uuid.Parse(userID); parseErr == nil {
		draft.OwnerID = &uid
	}

	err = s.drafts.Upsert(ctx, draft)
	// Cache write happens on the same save cycle regardless of the remote
	// outcome so a resilience copy always exists.
	s.writeCache(ctx, key, req.Payload)

	if err != nil {
		if errors.Is(err, repository.ErrStaleDraft) {
			if stored, loadErr := s.drafts.GetByKey(ctx, key); loadErr == nil {
				return draftToResponse(stored), nil
			}
		}
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	return draftToResponse(draft), nil
}

func (s *draftService) RestoreDraft(ctx context.Context, key string) (*DraftResponse, error) {
	draft, err := s.drafts.GetByKey(ctx, key)
	if err == nil {
		return draftToResponse(draft), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// Authoritative store unavailable — fall back to the cache copy
		if cached, cacheErr := autosave.Restore(ctx, s.cache, key); cacheErr == nil && cached != nil {
			return &DraftResponse{Key: key, Payload: cached, FromCache: true}, nil
		}
		return nil, err
	}

	// No draft is not an error; the caller gets nil and starts fresh
	cached, cacheErr := autosave.Restore(ctx, s.cache, key)
	if cacheErr != nil || cached == nil {
		return nil, nil
	}
	return &DraftResponse{Key: key, Payload: cached, FromCache: true}, nil
}

func (s *draftService) ClearDraft(ctx context.Context, key, userID string) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := s.drafts.DeleteByKey(ctx, key); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	s.dropCache(ctx, key)

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	entry := model.AuditLog{
		UserID:   uid,
		Action:   model.ActionClearDraft,
		EntityID: key,
	}
	if err := s.audits.Create(ctx, &entry); err != nil {
		log.Printf("draft: audit write failed for key %s: %v", key, err)
	}

	return nil
}

// --- Helpers ---

func (s *draftService) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *draftService) writeCache(ctx context.Context, key string, payload json.RawMessage) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, 0); err != nil {
		log.Printf("draft: cache write failed for key %s: %v", key, err)
	}
}

func (s *draftService) dropCache(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("draft: cache delete failed for key %s: %v", key, err)
	}
}

// payloadEqual compares two JSON payloads structurally, ignoring formatting
func payloadEqual(a string, b json.RawMessage) bool {
	var av, bv interface{}
	if err := json.Unmarshal([]byte(a), &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func draftToResponse(d *model.Draft) *DraftResponse {
	return &DraftResponse{
		Key:     d.Key,
		Payload: json.RawMessage(d.Payload),
		Version: d.Version,
		SavedAt: d.SavedAt,
	}
}
