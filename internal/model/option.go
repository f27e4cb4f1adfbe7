package model

import (
	"time"

	"github.com/google/uuid"
)

// DropdownOption backs the category-specific pickers (specializations,
// equipment types, units...). Options belong to a named module; a module may
// additionally scope options per requirement category.
type DropdownOption struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Module    string    `gorm:"type:varchar(100);not null;index" json:"module"`
	Category  string    `gorm:"type:varchar(30);index" json:"category"` // empty = applies to all categories
	Value     string    `gorm:"type:varchar(255);not null" json:"value"`
	Label     string    `gorm:"type:varchar(255);not null" json:"label"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
