package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PricingSessionTTL bounds how long a pricing selection stays valid.
const PricingSessionTTL = 30 * time.Minute

// PricingSelection is the ephemeral, session-scoped state a buyer builds
// while comparing vendor quotations. ExpiresAt is embedded in the stored
// payload and re-checked on read, so even a backend without TTL support
// cannot serve a stale selection.
type PricingSelection struct {
	SessionID     string            `json:"session_id"`
	RequirementID string            `json:"requirement_id"`
	QuotationIDs  []string          `json:"quotation_ids"`
	Notes         map[string]string `json:"notes,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// PricingSessionStore wraps a Store with the selection payload shape and
// double expiry check.
type PricingSessionStore struct {
	store Store
	now   func() time.Time
}

func NewPricingSessionStore(store Store) *PricingSessionStore {
	return &PricingSessionStore{store: store, now: time.Now}
}

func pricingKey(sessionID string) string {
	return "pricing_session:" + sessionID
}

// Save stores the selection under its session id, stamping the expiry.
func (p *PricingSessionStore) Save(ctx context.Context, sel PricingSelection) error {
	sel.ExpiresAt = p.now().Add(PricingSessionTTL)
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal pricing selection: %w", err)
	}
	return p.store.Set(ctx, pricingKey(sel.SessionID), raw, PricingSessionTTL)
}

// Load returns the selection for a session, or ErrNotFound if absent,
// malformed, or past its embedded expiry.
func (p *PricingSessionStore) Load(ctx context.Context, sessionID string) (*PricingSelection, error) {
	raw, err := p.store.Get(ctx, pricingKey(sessionID))
	if err != nil {
		return nil, err
	}

	var sel PricingSelection
	if err := json.Unmarshal(raw, &sel); err != nil {
		// Malformed cache content fails closed
		return nil, ErrNotFound
	}
	if p.now().After(sel.ExpiresAt) {
		_ = p.store.Delete(ctx, pricingKey(sessionID))
		return nil, ErrNotFound
	}
	return &sel, nil
}

// Clear drops the session state.
func (p *PricingSessionStore) Clear(ctx context.Context, sessionID string) error {
	return p.store.Delete(ctx, pricingKey(sessionID))
}
