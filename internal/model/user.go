package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User tenant roles
const (
	RoleAdmin        = "admin"
	RoleIndustry     = "industry"
	RoleVendor       = "vendor"
	RoleProfessional = "professional"
)

// Verification statuses for vendor/professional profiles
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// User represents any tenant account (industry buyer, vendor, professional, admin)
type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone              string         `gorm:"type:varchar(20);not null" json:"phone"`
	Password           string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role               string         `gorm:"type:varchar(50);not null" json:"role"`
	CompanyName        string         `gorm:"type:varchar(255)" json:"company_name"`
	VendorCategory     string         `gorm:"type:varchar(30)" json:"vendor_category"` // service, product, logistics (vendors only)
	VerificationStatus string         `gorm:"type:varchar(20);not null;default:'none'" json:"verification_status"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
