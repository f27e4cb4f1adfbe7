package repository

import (
	"context"

	"procurehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatrixRepository reads admin-defined approval matrices
type MatrixRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalMatrix, error)
	List(ctx context.Context) ([]model.ApprovalMatrix, error)
}

type matrixRepository struct {
	db *gorm.DB
}

func NewMatrixRepository(db *gorm.DB) MatrixRepository {
	return &matrixRepository{db: db}
}

func (r *matrixRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalMatrix, error) {
	var matrix model.ApprovalMatrix
	if err := GetDB(ctx, r.db).
		Preload("Levels", func(db *gorm.DB) *gorm.DB { return db.Order("level_order ASC") }).
		First(&matrix, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &matrix, nil
}

func (r *matrixRepository) List(ctx context.Context) ([]model.ApprovalMatrix, error) {
	var matrices []model.ApprovalMatrix
	if err := GetDB(ctx, r.db).
		Preload("Levels", func(db *gorm.DB) *gorm.DB { return db.Order("level_order ASC") }).
		Order("name ASC").
		Find(&matrices).Error; err != nil {
		return nil, err
	}
	return matrices, nil
}

// WorkflowRepository persists live approval workflows. A requirement has at
// most one workflow row (unique index on requirement_id); resubmission removes
// the superseded workflow before creating the replacement.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *model.ApprovalWorkflow) error
	GetByRequirementID(ctx context.Context, requirementID uuid.UUID) (*model.ApprovalWorkflow, error)
	Update(ctx context.Context, wf *model.ApprovalWorkflow) error
	UpdateLevel(ctx context.Context, level *model.WorkflowLevel) error
	UpdateDecision(ctx context.Context, decision *model.ApproverDecision) error
	DeleteByRequirementID(ctx context.Context, requirementID uuid.UUID) error
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, wf *model.ApprovalWorkflow) error {
	return GetDB(ctx, r.db).Create(wf).Error
}

func (r *workflowRepository) GetByRequirementID(ctx context.Context, requirementID uuid.UUID) (*model.ApprovalWorkflow, error) {
	var wf model.ApprovalWorkflow
	if err := GetDB(ctx, r.db).
		Preload("Levels", func(db *gorm.DB) *gorm.DB { return db.Order("level_order ASC") }).
		Preload("Levels.Decisions").
		Preload("Levels.Decisions.Approver").
		First(&wf, "requirement_id = ?", requirementID).Error; err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *workflowRepository) Update(ctx context.Context, wf *model.ApprovalWorkflow) error {
	return GetDB(ctx, r.db).Omit("Levels").Save(wf).Error
}

func (r *workflowRepository) UpdateLevel(ctx context.Context, level *model.WorkflowLevel) error {
	return GetDB(ctx, r.db).Omit("Decisions").Save(level).Error
}

func (r *workflowRepository) UpdateDecision(ctx context.Context, decision *model.ApproverDecision) error {
	return GetDB(ctx, r.db).Omit("Approver").Save(decision).Error
}

func (r *workflowRepository) DeleteByRequirementID(ctx context.Context, requirementID uuid.UUID) error {
	// Levels and decisions go with it via ON DELETE CASCADE
	return GetDB(ctx, r.db).Where("requirement_id = ?", requirementID).Delete(&model.ApprovalWorkflow{}).Error
}
