package repository

import (
	"context"

	"procurehub/internal/model"

	"gorm.io/gorm"
)

type OptionRepository interface {
	// ListByModules returns active options for the given modules, optionally
	// narrowed to one category (category-less options always match).
	ListByModules(ctx context.Context, modules []string, category string) ([]model.DropdownOption, error)
}

type optionRepository struct {
	db *gorm.DB
}

func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) ListByModules(ctx context.Context, modules []string, category string) ([]model.DropdownOption, error) {
	var options []model.DropdownOption
	query := GetDB(ctx, r.db).
		Where("module IN ?", modules).
		Where("active = ?", true)
	if category != "" {
		query = query.Where("category = ? OR category = ''", category)
	}
	if err := query.Order("module ASC, sort_order ASC, label ASC").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}
