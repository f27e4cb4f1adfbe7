package service

import (
	"context"
	"errors"
	"strings"

	"procurehub/internal/model"
	"procurehub/internal/repository"
)

// OptionGroup is one module's options in the lookup response
type OptionGroup struct {
	Module  string                 `json:"module"`
	Options []model.DropdownOption `json:"options"`
}

type OptionService interface {
	// Lookup resolves options for one or more comma-joined module names,
	// optionally narrowed to a requirement category.
	Lookup(ctx context.Context, modulesParam, category string) ([]OptionGroup, error)
}

type optionService struct {
	repo repository.OptionRepository
}

func NewOptionService(repo repository.OptionRepository) OptionService {
	return &optionService{repo: repo}
}

func (s *optionService) Lookup(ctx context.Context, modulesParam, category string) ([]OptionGroup, error) {
	var modules []string
	for _, m := range strings.Split(modulesParam, ",") {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			modules = append(modules, trimmed)
		}
	}
	if len(modules) == 0 {
		return nil, errors.New("at least one module name is required")
	}

	options, err := s.repo.ListByModules(ctx, modules, category)
	if err != nil {
		return nil, err
	}

	byModule := make(map[string][]model.DropdownOption)
	for _, opt := range options {
		byModule[opt.Module] = append(byModule[opt.Module], opt)
	}

	// Preserve the caller's module order, including empty groups
	groups := make([]OptionGroup, 0, len(modules))
	for _, m := range modules {
		groups = append(groups, OptionGroup{Module: m, Options: byModule[m]})
	}
	return groups, nil
}
