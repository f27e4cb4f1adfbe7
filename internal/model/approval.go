package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Workflow statuses as seen by clients
const (
	ApprovalStatusNotRequired = "not_required"
	ApprovalStatusPending     = "pending"
	ApprovalStatusApproved    = "approved"
	ApprovalStatusRejected    = "rejected"
)

// Level statuses — exactly one level of an active workflow is in_progress
const (
	LevelStatusPending    = "pending"
	LevelStatusInProgress = "in_progress"
	LevelStatusCompleted  = "completed"
	LevelStatusSkipped    = "skipped"
)

// Per-approver decision statuses
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ApprovalMatrix is a reusable, admin-defined sequence of approval levels a
// requirement must pass before publishing. MinBudget/MaxBudget bound the
// budgets the matrix applies to (zero max = unbounded).
type ApprovalMatrix struct {
	ID        uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string                `gorm:"type:varchar(255);not null" json:"name"`
	MinBudget decimal.Decimal       `gorm:"type:numeric(18,2);not null;default:0" json:"min_budget"`
	MaxBudget decimal.Decimal       `gorm:"type:numeric(18,2);not null;default:0" json:"max_budget"`
	Levels    []ApprovalMatrixLevel `gorm:"foreignKey:MatrixID;constraint:OnDelete:CASCADE" json:"levels"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ApprovalMatrixLevel is one ordered step of a matrix with its approver pool
type ApprovalMatrixLevel struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MatrixID   uuid.UUID `gorm:"type:uuid;not null;index" json:"matrix_id"`
	LevelOrder int       `gorm:"not null" json:"level_order"` // 1-based
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Approvers  UUIDList  `gorm:"type:jsonb" json:"approvers"`
}

// UUIDList is a jsonb-stored list of user ids
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type for UUIDList: %T", value)
	}
}

// ApprovalWorkflow is the live state machine instance created when a
// requirement is submitted for approval.
type ApprovalWorkflow struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequirementID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"requirement_id"`
	MatrixID           uuid.UUID       `gorm:"type:uuid;not null" json:"matrix_id"`
	Status             string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CurrentLevel       int             `gorm:"not null;default:1" json:"current_level"` // 1-based
	SubmissionDeadline *time.Time      `json:"submission_deadline"`
	EvaluationCriteria string          `gorm:"type:text" json:"evaluation_criteria"`
	AllowResubmission  bool            `gorm:"default:false" json:"allow_resubmission"`
	RejectionReason    string          `gorm:"type:text" json:"rejection_reason"`
	Levels             []WorkflowLevel `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"levels"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// WorkflowLevel is the materialized state of one matrix level inside a workflow
type WorkflowLevel struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkflowID uuid.UUID          `gorm:"type:uuid;not null;index" json:"workflow_id"`
	LevelOrder int                `gorm:"not null" json:"level_order"`
	Name       string             `gorm:"type:varchar(255);not null" json:"name"`
	Status     string             `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Decisions  []ApproverDecision `gorm:"foreignKey:LevelID;constraint:OnDelete:CASCADE" json:"decisions"`
}

// ApproverDecision records one approver's verdict at one workflow level
type ApproverDecision struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LevelID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"level_id"`
	ApproverID uuid.UUID  `gorm:"type:uuid;not null" json:"approver_id"`
	Approver   *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Comments   string     `gorm:"type:text" json:"comments"`
	DecidedAt  *time.Time `json:"decided_at"`
}
