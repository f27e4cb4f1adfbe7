package repository

import (
	"context"

	"procurehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequirementFilter narrows requirement listings
type RequirementFilter struct {
	Status   string
	Category string
	OwnerID  *uuid.UUID
	Page     int
	Limit    int
}

type RequirementRepository interface {
	Create(ctx context.Context, req *model.Requirement) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Requirement, error)
	List(ctx context.Context, filter RequirementFilter) ([]model.Requirement, int64, error)
	Update(ctx context.Context, req *model.Requirement) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type requirementRepository struct {
	db *gorm.DB
}

func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) Create(ctx context.Context, req *model.Requirement) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requirementRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Requirement, error) {
	var req model.Requirement
	if err := GetDB(ctx, r.db).Preload("Creator").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requirementRepository) List(ctx context.Context, filter RequirementFilter) ([]model.Requirement, int64, error) {
	var total int64
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.OwnerID != nil {
			q = q.Where("created_by = ?", *filter.OwnerID)
		}
		return q
	}

	if err := apply(db.Model(&model.Requirement{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var reqs []model.Requirement
	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Creator")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

func (r *requirementRepository) Update(ctx context.Context, req *model.Requirement) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requirementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Requirement{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *requirementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Requirement{}, "id = ?", id).Error
}
