package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurehub/internal/model"
	"procurehub/internal/repository"
	"procurehub/internal/wizard"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChecklistError carries the incomplete required fields blocking an action.
type ChecklistError struct {
	Missing []wizard.FieldStatus
}

func (e *ChecklistError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, f.Label)
	}
	return "required fields are incomplete: " + strings.Join(names, ", ")
}

// --- DTOs ---

type CreateRequirementRequest struct {
	Title           string          `json:"title" binding:"required"`
	Category        string          `json:"category" binding:"required,oneof=product service expert logistics"`
	Priority        string          `json:"priority" binding:"required,oneof=low medium high critical"`
	EstimatedBudget decimal.Decimal `json:"estimated_budget"`
	Deadline        *time.Time      `json:"deadline"`

	ProductSpecifications string `json:"product_specifications"`
	Quantity              int    `json:"quantity"`
	Specialization        string `json:"specialization"`
	Description           string `json:"description"`
	ServiceDescription    string `json:"service_description"`
	ScopeOfWork           string `json:"scope_of_work"`
	EquipmentType         string `json:"equipment_type"`
	PickupLocation        string `json:"pickup_location"`
	DeliveryLocation      string `json:"delivery_location"`

	Documents model.DocumentList `json:"documents"`
}

type UpdateRequirementRequest struct {
	Title           *string          `json:"title"`
	Priority        *string          `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	EstimatedBudget *decimal.Decimal `json:"estimated_budget"`
	Deadline        *time.Time       `json:"deadline"`

	ProductSpecifications *string `json:"product_specifications"`
	Quantity              *int    `json:"quantity"`
	Specialization        *string `json:"specialization"`
	Description           *string `json:"description"`
	ServiceDescription    *string `json:"service_description"`
	ScopeOfWork           *string `json:"scope_of_work"`
	EquipmentType         *string `json:"equipment_type"`
	PickupLocation        *string `json:"pickup_location"`
	DeliveryLocation      *string `json:"delivery_location"`

	Documents model.DocumentList `json:"documents"`
}

type PublishRequest struct {
	Visibility      string   `json:"visibility" binding:"required,oneof=public selected"`
	SelectedVendors []string `json:"selectedVendors"`
	NotifyByEmail   bool     `json:"notifyByEmail"`
	NotifyByApp     bool     `json:"notifyByApp"`
}

type PublishResponse struct {
	VendorsNotified int       `json:"vendorsNotified"`
	PublishedAt     time.Time `json:"publishedAt"`
}

type ChecklistResponse struct {
	Fields   []wizard.FieldStatus `json:"fields"`
	Complete bool                 `json:"complete"`
}

// --- Interface ---

type RequirementService interface {
	Create(ctx context.Context, userID string, req CreateRequirementRequest) (*model.Requirement, error)
	GetByID(ctx context.Context, id string) (*model.Requirement, error)
	List(ctx context.Context, filter repository.RequirementFilter) ([]model.Requirement, int64, error)
	Update(ctx context.Context, id, userID string, req UpdateRequirementRequest) (*model.Requirement, error)
	Delete(ctx context.Context, id, userID string) error
	Checklist(ctx context.Context, id string) (*ChecklistResponse, error)
	Publish(ctx context.Context, id, userID string, req PublishRequest) (*PublishResponse, error)
}

type requirementService struct {
	txm          repository.TransactionManager
	requirements repository.RequirementRepository
	workflows    repository.WorkflowRepository
	users        repository.UserRepository
	audits       repository.AuditRepository
}

func NewRequirementService(
	txm repository.TransactionManager,
	requirements repository.RequirementRepository,
	workflows repository.WorkflowRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
) RequirementService {
	return &requirementService{
		txm:          txm,
		requirements: requirements,
		workflows:    workflows,
		users:        users,
		audits:       audits,
	}
}

// --- Implementation ---

func (s *requirementService) Create(ctx context.Context, userID string, req CreateRequirementRequest) (*model.Requirement, error) {
	requirement := &model.Requirement{
		Title:           strings.TrimSpace(req.Title),
		Category:        req.Category,
		Priority:        req.Priority,
		Status:          model.RequirementStatusDraft,
		EstimatedBudget: req.EstimatedBudget,
		Deadline:        req.Deadline,

		ProductSpecifications: req.ProductSpecifications,
		Quantity:              req.Quantity,
		Specialization:        req.Specialization,
		Description:           req.Description,
		ServiceDescription:    req.ServiceDescription,
		ScopeOfWork:           req.ScopeOfWork,
		EquipmentType:         req.EquipmentType,
		PickupLocation:        req.PickupLocation,
		DeliveryLocation:      req.DeliveryLocation,
		Documents:             req.Documents,
	}
	if uid, err := uuid.Parse(userID); err == nil {
		requirement.CreatedBy = &uid
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requirements.Create(txCtx, requirement); createErr != nil {
			return fmt.Errorf("failed to create requirement: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateRequirement, requirement.ID.String(), requirement.Title, map[string]interface{}{
			"category": requirement.Category,
			"priority": requirement.Priority,
		})
	})
	if err != nil {
		return nil, err
	}

	return requirement, nil
}

func (s *requirementService) GetByID(ctx context.Context, id string) (*model.Requirement, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}
	return s.requirements.GetByID(ctx, reqID)
}

func (s *requirementService) List(ctx context.Context, filter repository.RequirementFilter) ([]model.Requirement, int64, error) {
	return s.requirements.List(ctx, filter)
}

func (s *requirementService) Update(ctx context.Context, id, userID string, req UpdateRequirementRequest) (*model.Requirement, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}

	requirement, err := s.requirements.GetByID(ctx, reqID)
	if err != nil {
		return nil, fmt.Errorf("requirement not found: %w", err)
	}
	if requirement.Status == model.RequirementStatusPublished {
		return nil, errors.New("published requirements cannot be edited")
	}
	if requirement.Status == model.RequirementStatusPendingApproval {
		return nil, errors.New("requirements under approval cannot be edited")
	}

	applyUpdate(requirement, req)

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.requirements.Update(txCtx, requirement); updErr != nil {
			return fmt.Errorf("failed to update requirement: %w", updErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateRequirement, requirement.ID.String(), requirement.Title, nil)
	})
	if err != nil {
		return nil, err
	}

	return requirement, nil
}

func (s *requirementService) Delete(ctx context.Context, id, userID string) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid requirement id: %w", err)
	}

	requirement, err := s.requirements.GetByID(ctx, reqID)
	if err != nil {
		return fmt.Errorf("requirement not found: %w", err)
	}
	if requirement.Status == model.RequirementStatusPublished {
		return errors.New("published requirements cannot be deleted")
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.requirements.Delete(txCtx, reqID); delErr != nil {
			return fmt.Errorf("failed to delete requirement: %w", delErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteRequirement, reqID.String(), requirement.Title, nil)
	})
}

func (s *requirementService) Checklist(ctx context.Context, id string) (*ChecklistResponse, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}

	requirement, err := s.requirements.GetByID(ctx, reqID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Missing form data is treated as all-fields-incomplete
			return &ChecklistResponse{Fields: wizard.Checklist(nil), Complete: false}, nil
		}
		return nil, err
	}

	fields := wizard.Checklist(requirement)
	return &ChecklistResponse{Fields: fields, Complete: wizard.Complete(requirement)}, nil
}

// Publish makes an approved (or approval-exempt) requirement visible to
// vendors. The required-fields gate is enforced here as well — the client
// blocks publish on an incomplete checklist, but this service is the
// authority and rejects independently.
func (s *requirementService) Publish(ctx context.Context, id, userID string, req PublishRequest) (*PublishResponse, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}

	var resp *PublishResponse
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		requirement, findErr := s.requirements.GetByID(txCtx, reqID)
		if findErr != nil {
			return fmt.Errorf("requirement not found: %w", findErr)
		}
		if requirement.Status == model.RequirementStatusPublished {
			return errors.New("requirement is already published")
		}

		if !wizard.Complete(requirement) {
			var missing []wizard.FieldStatus
			for _, f := range wizard.Checklist(requirement) {
				if !f.Completed {
					missing = append(missing, f)
				}
			}
			return &ChecklistError{Missing: missing}
		}

		// An existing workflow must have approved the requirement; absence
		// of a workflow means approval is not required.
		wf, wfErr := s.workflows.GetByRequirementID(txCtx, reqID)
		if wfErr == nil {
			switch wf.Status {
			case model.ApprovalStatusApproved:
			case model.ApprovalStatusPending:
				return errors.New("requirement is still pending approval")
			case model.ApprovalStatusRejected:
				return errors.New("requirement was rejected and cannot be published")
			}
		} else if !errors.Is(wfErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check approval state: %w", wfErr)
		}

		notified, countErr := s.countVendors(txCtx, requirement, req)
		if countErr != nil {
			return countErr
		}

		now := time.Now()
		requirement.Status = model.RequirementStatusPublished
		requirement.Visibility = req.Visibility
		requirement.PublishedAt = &now
		requirement.VendorsNotified = notified
		if updErr := s.requirements.Update(txCtx, requirement); updErr != nil {
			return fmt.Errorf("failed to publish requirement: %w", updErr)
		}

		resp = &PublishResponse{VendorsNotified: notified, PublishedAt: now}

		return s.audit(txCtx, userID, model.ActionPublish, reqID.String(), requirement.Title, map[string]interface{}{
			"visibility":       req.Visibility,
			"vendors_notified": notified,
			"notify_by_email":  req.NotifyByEmail,
			"notify_by_app":    req.NotifyByApp,
		})
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// --- Helpers ---

func (s *requirementService) countVendors(ctx context.Context, requirement *model.Requirement, req PublishRequest) (int, error) {
	if req.Visibility == model.VisibilitySelected {
		return len(req.SelectedVendors), nil
	}

	// Public: every verified vendor in the matching category is notified.
	// Expert requirements go to service vendors.
	category := requirement.Category
	if category == model.CategoryExpert {
		category = model.CategoryService
	}
	vendors, err := s.users.ListVendorsByCategory(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve vendors: %w", err)
	}
	return len(vendors), nil
}

func applyUpdate(r *model.Requirement, req UpdateRequirementRequest) {
	if req.Title != nil {
		r.Title = strings.TrimSpace(*req.Title)
	}
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	if req.EstimatedBudget != nil {
		r.EstimatedBudget = *req.EstimatedBudget
	}
	if req.Deadline != nil {
		r.Deadline = req.Deadline
	}
	if req.ProductSpecifications != nil {
		r.ProductSpecifications = *req.ProductSpecifications
	}
	if req.Quantity != nil {
		r.Quantity = *req.Quantity
	}
	if req.Specialization != nil {
		r.Specialization = *req.Specialization
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.ServiceDescription != nil {
		r.ServiceDescription = *req.ServiceDescription
	}
	if req.ScopeOfWork != nil {
		r.ScopeOfWork = *req.ScopeOfWork
	}
	if req.EquipmentType != nil {
		r.EquipmentType = *req.EquipmentType
	}
	if req.PickupLocation != nil {
		r.PickupLocation = *req.PickupLocation
	}
	if req.DeliveryLocation != nil {
		r.DeliveryLocation = *req.DeliveryLocation
	}
	if req.Documents != nil {
		r.Documents = req.Documents
	}
}

func (s *requirementService) audit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var raw []byte
	if details != nil {
		raw, _ = json.Marshal(details)
	}
	entry := model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := s.audits.Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
