package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Requirement categories
const (
	CategoryProduct   = "product"
	CategoryService   = "service"
	CategoryExpert    = "expert"
	CategoryLogistics = "logistics"
)

// Requirement statuses through the drafting → approval → publish lifecycle
const (
	RequirementStatusDraft           = "draft"
	RequirementStatusPendingApproval = "pending_approval"
	RequirementStatusApproved        = "approved"
	RequirementStatusRejected        = "rejected"
	RequirementStatusPublished       = "published"
)

// Priorities
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Publish visibility
const (
	VisibilityPublic   = "public"
	VisibilitySelected = "selected"
)

// Requirement is the core procurement request entity. Category-specific
// columns are only meaningful for their category; the wizard checklist
// decides which of them are mandatory.
type Requirement struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title           string          `gorm:"type:varchar(256);not null" json:"title"`
	Category        string          `gorm:"type:varchar(20);not null;index" json:"category"`
	Priority        string          `gorm:"type:varchar(20);not null" json:"priority"`
	Status          string          `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	EstimatedBudget decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"estimated_budget"`
	Deadline        *time.Time      `json:"deadline"`

	// product
	ProductSpecifications string `gorm:"type:text" json:"product_specifications,omitempty"`
	Quantity              int    `json:"quantity,omitempty"`

	// expert
	Specialization string `gorm:"type:varchar(255)" json:"specialization,omitempty"`
	Description    string `gorm:"type:text" json:"description,omitempty"`

	// service
	ServiceDescription string `gorm:"type:text" json:"service_description,omitempty"`
	ScopeOfWork        string `gorm:"type:text" json:"scope_of_work,omitempty"`

	// logistics
	EquipmentType    string `gorm:"type:varchar(255)" json:"equipment_type,omitempty"`
	PickupLocation   string `gorm:"type:varchar(255)" json:"pickup_location,omitempty"`
	DeliveryLocation string `gorm:"type:varchar(255)" json:"delivery_location,omitempty"`

	Documents DocumentList `gorm:"type:jsonb" json:"documents,omitempty"`

	Visibility      string     `gorm:"type:varchar(20)" json:"visibility,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	VendorsNotified int        `json:"vendors_notified,omitempty"`

	CreatedBy *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	Creator   *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Document is an uploaded attachment reference on a requirement
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// DocumentList is stored as a jsonb column
type DocumentList []Document

func (d DocumentList) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DocumentList) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type for DocumentList: %T", value)
	}
}
