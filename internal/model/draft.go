package model

import (
	"time"

	"github.com/google/uuid"
)

// Draft is the authoritative server-side copy of an in-progress requirement
// form. The payload is an opaque JSON snapshot owned by the wizard; the server
// never validates it until a completeness check is requested. Version is a
// monotonic counter — a save carrying a version lower than the stored one is
// stale and must be discarded, not applied.
type Draft struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"key"` // caller-supplied storage key
	Payload   string     `gorm:"type:jsonb;not null" json:"payload"`
	Version   int64      `gorm:"not null;default:0" json:"version"`
	OwnerID   *uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`
	SavedAt   time.Time  `gorm:"not null" json:"saved_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
