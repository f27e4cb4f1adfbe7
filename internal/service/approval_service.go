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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approve outcomes — three distinct results drive three different
// confirmations in the UI.
const (
	OutcomeDecisionRecorded = "decision_recorded" // one approver's vote recorded, level still open
	OutcomeLevelAdvanced    = "level_advanced"    // current level completed, next level opened
	OutcomeApproved         = "approved"          // final level completed, requirement fully approved
)

// ErrReasonRequired is returned before any persistence work when a rejection
// arrives without a non-blank reason.
var ErrReasonRequired = errors.New("rejection reason is required")

// --- DTOs ---

type SubmitApprovalDTO struct {
	SelectedApprovalMatrixID string     `json:"selectedApprovalMatrixId" binding:"required"`
	SubmissionDeadline       *time.Time `json:"submissionDeadline"`
	EvaluationCriteria       string     `json:"evaluationCriteria"`
}

type ApproveDTO struct {
	Comments string `json:"comments"`
}

type RejectDTO struct {
	Reason            string `json:"reason"`
	Comments          string `json:"comments"`
	AllowResubmission bool   `json:"allowResubmission"`
}

// ApproverStatus is one approver's state within a level
type ApproverStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Comments string `json:"comments,omitempty"`
}

// LevelProgress is one level's state within the workflow
type LevelProgress struct {
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	Approvers []ApproverStatus `json:"approvers"`
}

// ApprovalProgress is the level-by-level projection clients render
type ApprovalProgress struct {
	CurrentLevel int             `json:"currentLevel"`
	TotalLevels  int             `json:"totalLevels"`
	Levels       []LevelProgress `json:"levels"`
}

// ApprovalStatusResponse is the read model for a requirement's approval state.
// Progress is nil when no workflow exists (status not_required).
type ApprovalStatusResponse struct {
	ApprovalStatus   string            `json:"approvalStatus"`
	ApprovalProgress *ApprovalProgress `json:"approvalProgress,omitempty"`
}

// ApproveResult pairs the outcome with the refreshed status
type ApproveResult struct {
	Outcome string                 `json:"outcome"`
	Status  ApprovalStatusResponse `json:"status"`
}

// ApprovalNotifier pushes status-change events to connected clients. Pull
// via GetStatus stays authoritative; consumers may ignore the push entirely.
type ApprovalNotifier interface {
	NotifyApprovalUpdate(requirementID, status, outcome string)
}

// --- Interface ---

type ApprovalService interface {
	SubmitForApproval(ctx context.Context, requirementID, userID string, req SubmitApprovalDTO) (*ApprovalStatusResponse, error)
	GetStatus(ctx context.Context, requirementID string) (*ApprovalStatusResponse, error)
	Approve(ctx context.Context, requirementID, userID string, req ApproveDTO) (*ApproveResult, error)
	Reject(ctx context.Context, requirementID, userID string, req RejectDTO) (*ApprovalStatusResponse, error)
	ListMatrices(ctx context.Context) ([]model.ApprovalMatrix, error)
}

type approvalService struct {
	txm          repository.TransactionManager
	workflows    repository.WorkflowRepository
	matrices     repository.MatrixRepository
	requirements repository.RequirementRepository
	audits       repository.AuditRepository
	notifier     ApprovalNotifier // optional
}

func NewApprovalService(
	txm repository.TransactionManager,
	workflows repository.WorkflowRepository,
	matrices repository.MatrixRepository,
	requirements repository.RequirementRepository,
	audits repository.AuditRepository,
	notifier ApprovalNotifier,
) ApprovalService {
	return &approvalService{
		txm:          txm,
		workflows:    workflows,
		matrices:     matrices,
		requirements: requirements,
		audits:       audits,
		notifier:     notifier,
	}
}

// --- Implementation ---

func (s *approvalService) SubmitForApproval(ctx context.Context, requirementID, userID string, req SubmitApprovalDTO) (*ApprovalStatusResponse, error) {
	reqID, err := uuid.Parse(requirementID)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}
	matrixID, err := uuid.Parse(req.SelectedApprovalMatrixID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval matrix id: %w", err)
	}

	var wf *model.ApprovalWorkflow
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		requirement, findErr := s.requirements.GetByID(txCtx, reqID)
		if findErr != nil {
			return fmt.Errorf("requirement not found: %w", findErr)
		}

		if requirement.Status != model.RequirementStatusDraft && requirement.Status != model.RequirementStatusRejected {
			return fmt.Errorf("requirement is already %s", requirement.Status)
		}
		if requirement.Status == model.RequirementStatusRejected {
			prev, prevErr := s.workflows.GetByRequirementID(txCtx, reqID)
			if prevErr == nil {
				if !prev.AllowResubmission {
					return errors.New("requirement was rejected without permission to resubmit")
				}
				// requirement_id is unique across workflows; the rejected one
				// must go before a fresh instance can be inserted.
				if delErr := s.workflows.DeleteByRequirementID(txCtx, reqID); delErr != nil {
					return fmt.Errorf("failed to remove superseded workflow: %w", delErr)
				}
			}
		}

		matrix, matrixErr := s.matrices.GetByID(txCtx, matrixID)
		if matrixErr != nil {
			return fmt.Errorf("approval matrix not found: %w", matrixErr)
		}
		if len(matrix.Levels) == 0 {
			return errors.New("approval matrix has no levels")
		}

		// The matrix must cover the requirement's budget band
		if requirement.EstimatedBudget.LessThan(matrix.MinBudget) {
			return fmt.Errorf("budget %s is below matrix minimum %s",
				requirement.EstimatedBudget.StringFixed(2), matrix.MinBudget.StringFixed(2))
		}
		if !matrix.MaxBudget.IsZero() && requirement.EstimatedBudget.GreaterThan(matrix.MaxBudget) {
			return fmt.Errorf("budget %s exceeds matrix maximum %s",
				requirement.EstimatedBudget.StringFixed(2), matrix.MaxBudget.StringFixed(2))
		}

		wf = instantiateWorkflow(reqID, matrix, req)
		if createErr := s.workflows.Create(txCtx, wf); createErr != nil {
			return fmt.Errorf("failed to create approval workflow: %w", createErr)
		}

		if statusErr := s.requirements.UpdateStatus(txCtx, reqID, model.RequirementStatusPendingApproval); statusErr != nil {
			return fmt.Errorf("failed to update requirement status: %w", statusErr)
		}

		return s.writeAudit(txCtx, userID, model.ActionSubmitForApproval, reqID.String(), requirement.Title, map[string]interface{}{
			"matrix_id":    matrixID.String(),
			"matrix_name":  matrix.Name,
			"total_levels": len(matrix.Levels),
		})
	})
	if err != nil {
		return nil, err
	}

	status := projectStatus(wf)
	s.notify(reqID.String(), status.ApprovalStatus, "")
	return &status, nil
}

func (s *approvalService) GetStatus(ctx context.Context, requirementID string) (*ApprovalStatusResponse, error) {
	reqID, err := uuid.Parse(requirementID)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}

	wf, err := s.workflows.GetByRequirementID(ctx, reqID)
	if err != nil {
		// No workflow yet is the normal state, not an error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ApprovalStatusResponse{ApprovalStatus: model.ApprovalStatusNotRequired}, nil
		}
		return nil, err
	}

	status := projectStatus(wf)
	return &status, nil
}

func (s *approvalService) Approve(ctx context.Context, requirementID, userID string, req ApproveDTO) (*ApproveResult, error) {
	reqID, err := uuid.Parse(requirementID)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}
	approverID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var (
		wf      *model.ApprovalWorkflow
		outcome string
	)
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		wf, txErr = s.workflows.GetByRequirementID(txCtx, reqID)
		if txErr != nil {
			return fmt.Errorf("approval workflow not found: %w", txErr)
		}
		if wf.Status != model.ApprovalStatusPending {
			return fmt.Errorf("approval workflow is already %s", wf.Status)
		}

		level := currentLevel(wf)
		if level == nil {
			return errors.New("workflow has no level in progress")
		}

		decision := pendingDecision(level, approverID)
		if decision == nil {
			return errors.New("user is not a pending approver for the current level")
		}

		now := time.Now()
		decision.Status = model.DecisionApproved
		decision.Comments = strings.TrimSpace(req.Comments)
		decision.DecidedAt = &now
		if updErr := s.workflows.UpdateDecision(txCtx, decision); updErr != nil {
			return fmt.Errorf("failed to record decision: %w", updErr)
		}

		outcome = OutcomeDecisionRecorded
		if levelSettled(level) {
			level.Status = model.LevelStatusCompleted
			if updErr := s.workflows.UpdateLevel(txCtx, level); updErr != nil {
				return fmt.Errorf("failed to complete level: %w", updErr)
			}

			next := nextLevel(wf, level.LevelOrder)
			if next == nil {
				wf.Status = model.ApprovalStatusApproved
				outcome = OutcomeApproved
				if statusErr := s.requirements.UpdateStatus(txCtx, reqID, model.RequirementStatusApproved); statusErr != nil {
					return fmt.Errorf("failed to update requirement status: %w", statusErr)
				}
			} else {
				next.Status = model.LevelStatusInProgress
				wf.CurrentLevel = next.LevelOrder
				outcome = OutcomeLevelAdvanced
				if updErr := s.workflows.UpdateLevel(txCtx, next); updErr != nil {
					return fmt.Errorf("failed to open next level: %w", updErr)
				}
			}
			if updErr := s.workflows.Update(txCtx, wf); updErr != nil {
				return fmt.Errorf("failed to update workflow: %w", updErr)
			}
		}

		return s.writeAudit(txCtx, userID, model.ActionApproveLevel, reqID.String(), level.Name, map[string]interface{}{
			"level":   level.LevelOrder,
			"outcome": outcome,
		})
	})
	if err != nil {
		return nil, err
	}

	status := projectStatus(wf)
	s.notify(reqID.String(), status.ApprovalStatus, outcome)
	return &ApproveResult{Outcome: outcome, Status: status}, nil
}

func (s *approvalService) Reject(ctx context.Context, requirementID, userID string, req RejectDTO) (*ApprovalStatusResponse, error) {
	// Precondition check before any lookup or write
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	reqID, err := uuid.Parse(requirementID)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}
	approverID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var wf *model.ApprovalWorkflow
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		wf, txErr = s.workflows.GetByRequirementID(txCtx, reqID)
		if txErr != nil {
			return fmt.Errorf("approval workflow not found: %w", txErr)
		}
		if wf.Status != model.ApprovalStatusPending {
			return fmt.Errorf("approval workflow is already %s", wf.Status)
		}

		level := currentLevel(wf)
		if level == nil {
			return errors.New("workflow has no level in progress")
		}

		decision := pendingDecision(level, approverID)
		if decision == nil {
			return errors.New("user is not a pending approver for the current level")
		}

		now := time.Now()
		decision.Status = model.DecisionRejected
		decision.Comments = strings.TrimSpace(req.Comments)
		decision.DecidedAt = &now
		if updErr := s.workflows.UpdateDecision(txCtx, decision); updErr != nil {
			return fmt.Errorf("failed to record decision: %w", updErr)
		}

		// One rejection terminates the workflow: close the current level and
		// skip everything after it.
		level.Status = model.LevelStatusCompleted
		if updErr := s.workflows.UpdateLevel(txCtx, level); updErr != nil {
			return fmt.Errorf("failed to close level: %w", updErr)
		}
		for i := range wf.Levels {
			if wf.Levels[i].LevelOrder > level.LevelOrder {
				wf.Levels[i].Status = model.LevelStatusSkipped
				if updErr := s.workflows.UpdateLevel(txCtx, &wf.Levels[i]); updErr != nil {
					return fmt.Errorf("failed to skip level: %w", updErr)
				}
			}
		}

		wf.Status = model.ApprovalStatusRejected
		wf.RejectionReason = reason
		wf.AllowResubmission = req.AllowResubmission
		if updErr := s.workflows.Update(txCtx, wf); updErr != nil {
			return fmt.Errorf("failed to update workflow: %w", updErr)
		}

		if statusErr := s.requirements.UpdateStatus(txCtx, reqID, model.RequirementStatusRejected); statusErr != nil {
			return fmt.Errorf("failed to update requirement status: %w", statusErr)
		}

		return s.writeAudit(txCtx, userID, model.ActionRejectWorkflow, reqID.String(), level.Name, map[string]interface{}{
			"level":              level.LevelOrder,
			"reason":             reason,
			"allow_resubmission": req.AllowResubmission,
		})
	})
	if err != nil {
		return nil, err
	}

	status := projectStatus(wf)
	s.notify(reqID.String(), status.ApprovalStatus, "")
	return &status, nil
}

func (s *approvalService) ListMatrices(ctx context.Context) ([]model.ApprovalMatrix, error) {
	return s.matrices.List(ctx)
}

// --- Helpers ---

// instantiateWorkflow materializes matrix levels into live workflow state.
// The first level opens immediately; all approver decisions start pending.
func instantiateWorkflow(requirementID uuid.UUID, matrix *model.ApprovalMatrix, req SubmitApprovalDTO) *model.ApprovalWorkflow {
	wf := &model.ApprovalWorkflow{
		RequirementID:      requirementID,
		MatrixID:           matrix.ID,
		Status:             model.ApprovalStatusPending,
		CurrentLevel:       1,
		SubmissionDeadline: req.SubmissionDeadline,
		EvaluationCriteria: req.EvaluationCriteria,
	}

	for _, ml := range matrix.Levels {
		level := model.WorkflowLevel{
			LevelOrder: ml.LevelOrder,
			Name:       ml.Name,
			Status:     model.LevelStatusPending,
		}
		if ml.LevelOrder == 1 {
			level.Status = model.LevelStatusInProgress
		}
		for _, approverID := range ml.Approvers {
			level.Decisions = append(level.Decisions, model.ApproverDecision{
				ApproverID: approverID,
				Status:     model.DecisionPending,
			})
		}
		wf.Levels = append(wf.Levels, level)
	}

	return wf
}

func currentLevel(wf *model.ApprovalWorkflow) *model.WorkflowLevel {
	for i := range wf.Levels {
		if wf.Levels[i].Status == model.LevelStatusInProgress {
			return &wf.Levels[i]
		}
	}
	return nil
}

func nextLevel(wf *model.ApprovalWorkflow, after int) *model.WorkflowLevel {
	for i := range wf.Levels {
		if wf.Levels[i].LevelOrder == after+1 {
			return &wf.Levels[i]
		}
	}
	return nil
}

func pendingDecision(level *model.WorkflowLevel, approverID uuid.UUID) *model.ApproverDecision {
	for i := range level.Decisions {
		if level.Decisions[i].ApproverID == approverID && level.Decisions[i].Status == model.DecisionPending {
			return &level.Decisions[i]
		}
	}
	return nil
}

// levelSettled reports whether every approver at the level has decided
func levelSettled(level *model.WorkflowLevel) bool {
	for _, d := range level.Decisions {
		if d.Status == model.DecisionPending {
			return false
		}
	}
	return true
}

// projectStatus builds the read model from workflow state
func projectStatus(wf *model.ApprovalWorkflow) ApprovalStatusResponse {
	if wf == nil {
		return ApprovalStatusResponse{ApprovalStatus: model.ApprovalStatusNotRequired}
	}

	progress := &ApprovalProgress{
		CurrentLevel: wf.CurrentLevel,
		TotalLevels:  len(wf.Levels),
	}
	for _, level := range wf.Levels {
		lp := LevelProgress{Name: level.Name, Status: level.Status}
		for _, d := range level.Decisions {
			as := ApproverStatus{
				ID:       d.ApproverID.String(),
				Status:   d.Status,
				Comments: d.Comments,
			}
			if d.Approver != nil {
				as.Name = d.Approver.Username
			}
			lp.Approvers = append(lp.Approvers, as)
		}
		progress.Levels = append(progress.Levels, lp)
	}

	return ApprovalStatusResponse{
		ApprovalStatus:   wf.Status,
		ApprovalProgress: progress,
	}
}

func (s *approvalService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	raw, _ := json.Marshal(details)
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

func (s *approvalService) notify(requirementID, status, outcome string) {
	if s.notifier != nil {
		s.notifier.NotifyApprovalUpdate(requirementID, status, outcome)
	}
}
