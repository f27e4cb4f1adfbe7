package service

import (
	"context"
	"errors"
	"testing"

	"procurehub/internal/model"
	"procurehub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Stubs ---

// passthroughTx runs the function without a real transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubWorkflowRepo struct {
	workflows map[uuid.UUID]*model.ApprovalWorkflow // keyed by requirement id

	getCalls      int
	decisionSaves int
	levelSaves    int
	updateSaves   int
	deletes       int
}

func newStubWorkflowRepo() *stubWorkflowRepo {
	return &stubWorkflowRepo{workflows: make(map[uuid.UUID]*model.ApprovalWorkflow)}
}

func (r *stubWorkflowRepo) Create(_ context.Context, wf *model.ApprovalWorkflow) error {
	// Mirrors the unique index on requirement_id
	if _, exists := r.workflows[wf.RequirementID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	r.workflows[wf.RequirementID] = wf
	return nil
}

func (r *stubWorkflowRepo) GetByRequirementID(_ context.Context, requirementID uuid.UUID) (*model.ApprovalWorkflow, error) {
	r.getCalls++
	wf, ok := r.workflows[requirementID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return wf, nil
}

func (r *stubWorkflowRepo) Update(_ context.Context, _ *model.ApprovalWorkflow) error {
	r.updateSaves++
	return nil
}

func (r *stubWorkflowRepo) UpdateLevel(_ context.Context, _ *model.WorkflowLevel) error {
	r.levelSaves++
	return nil
}

func (r *stubWorkflowRepo) UpdateDecision(_ context.Context, _ *model.ApproverDecision) error {
	r.decisionSaves++
	return nil
}

func (r *stubWorkflowRepo) DeleteByRequirementID(_ context.Context, requirementID uuid.UUID) error {
	r.deletes++
	delete(r.workflows, requirementID)
	return nil
}

type stubMatrixRepo struct {
	matrices map[uuid.UUID]*model.ApprovalMatrix
}

func (r *stubMatrixRepo) GetByID(_ context.Context, id uuid.UUID) (*model.ApprovalMatrix, error) {
	m, ok := r.matrices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (r *stubMatrixRepo) List(_ context.Context) ([]model.ApprovalMatrix, error) {
	out := make([]model.ApprovalMatrix, 0, len(r.matrices))
	for _, m := range r.matrices {
		out = append(out, *m)
	}
	return out, nil
}

type stubRequirementRepo struct {
	requirements map[uuid.UUID]*model.Requirement
	statuses     map[uuid.UUID]string
}

func newStubRequirementRepo() *stubRequirementRepo {
	return &stubRequirementRepo{
		requirements: make(map[uuid.UUID]*model.Requirement),
		statuses:     make(map[uuid.UUID]string),
	}
}

func (r *stubRequirementRepo) Create(_ context.Context, req *model.Requirement) error {
	r.requirements[req.ID] = req
	return nil
}

func (r *stubRequirementRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Requirement, error) {
	req, ok := r.requirements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return req, nil
}

func (r *stubRequirementRepo) List(_ context.Context, _ repository.RequirementFilter) ([]model.Requirement, int64, error) {
	return nil, 0, nil
}

func (r *stubRequirementRepo) Update(_ context.Context, req *model.Requirement) error {
	r.requirements[req.ID] = req
	return nil
}

func (r *stubRequirementRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.statuses[id] = status
	if req, ok := r.requirements[id]; ok {
		req.Status = status
	}
	return nil
}

func (r *stubRequirementRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.requirements, id)
	return nil
}

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (r *stubAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, _ string, _, _ int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

type stubNotifier struct {
	events []string
}

func (n *stubNotifier) NotifyApprovalUpdate(_, status, outcome string) {
	n.events = append(n.events, status+"/"+outcome)
}

// --- Fixtures ---

type approvalFixture struct {
	svc          ApprovalService
	workflows    *stubWorkflowRepo
	requirements *stubRequirementRepo
	audits       *stubAuditRepo
	notifier     *stubNotifier

	requirementID uuid.UUID
	matrixID      uuid.UUID
	level1        [2]uuid.UUID // two approvers on level 1
	level2        uuid.UUID    // one approver on level 2
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()

	f := &approvalFixture{
		workflows:     newStubWorkflowRepo(),
		requirements:  newStubRequirementRepo(),
		audits:        &stubAuditRepo{},
		notifier:      &stubNotifier{},
		requirementID: uuid.New(),
		matrixID:      uuid.New(),
	}
	f.level1[0] = uuid.New()
	f.level1[1] = uuid.New()
	f.level2 = uuid.New()

	f.requirements.requirements[f.requirementID] = &model.Requirement{
		ID:              f.requirementID,
		Title:           "Plant upgrade",
		Status:          model.RequirementStatusDraft,
		EstimatedBudget: decimal.NewFromInt(50000),
	}

	matrices := &stubMatrixRepo{matrices: map[uuid.UUID]*model.ApprovalMatrix{
		f.matrixID: {
			ID:        f.matrixID,
			Name:      "High value",
			MinBudget: decimal.NewFromInt(10000),
			MaxBudget: decimal.NewFromInt(100000),
			Levels: []model.ApprovalMatrixLevel{
				{LevelOrder: 1, Name: "Department", Approvers: model.UUIDList{f.level1[0], f.level1[1]}},
				{LevelOrder: 2, Name: "Finance", Approvers: model.UUIDList{f.level2}},
			},
		},
	}}

	f.svc = NewApprovalService(passthroughTx{}, f.workflows, matrices, f.requirements, f.audits, f.notifier)
	return f
}

func (f *approvalFixture) submit(t *testing.T) {
	t.Helper()
	_, err := f.svc.SubmitForApproval(context.Background(), f.requirementID.String(), f.level1[0].String(), SubmitApprovalDTO{
		SelectedApprovalMatrixID: f.matrixID.String(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}

// --- Tests ---

func TestSubmitForApprovalOpensFirstLevel(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)

	wf := f.workflows.workflows[f.requirementID]
	if wf == nil {
		t.Fatal("workflow was not created")
	}
	if wf.Status != model.ApprovalStatusPending {
		t.Errorf("workflow status %s", wf.Status)
	}
	if wf.CurrentLevel != 1 {
		t.Errorf("current level %d", wf.CurrentLevel)
	}
	if wf.Levels[0].Status != model.LevelStatusInProgress {
		t.Errorf("level 1 status %s", wf.Levels[0].Status)
	}
	if wf.Levels[1].Status != model.LevelStatusPending {
		t.Errorf("level 2 status %s", wf.Levels[1].Status)
	}
	for _, d := range wf.Levels[0].Decisions {
		if d.Status != model.DecisionPending {
			t.Errorf("decision status %s", d.Status)
		}
	}
	if got := f.requirements.statuses[f.requirementID]; got != model.RequirementStatusPendingApproval {
		t.Errorf("requirement status %s", got)
	}
}

func TestSubmitForApprovalRejectsBudgetOutsideMatrixBand(t *testing.T) {
	f := newApprovalFixture(t)
	f.requirements.requirements[f.requirementID].EstimatedBudget = decimal.NewFromInt(500)

	_, err := f.svc.SubmitForApproval(context.Background(), f.requirementID.String(), f.level1[0].String(), SubmitApprovalDTO{
		SelectedApprovalMatrixID: f.matrixID.String(),
	})
	if err == nil {
		t.Fatal("expected budget band error")
	}
	if f.workflows.workflows[f.requirementID] != nil {
		t.Error("workflow was created despite budget mismatch")
	}
}

func TestGetStatusWithoutWorkflowReportsNotRequired(t *testing.T) {
	f := newApprovalFixture(t)

	status, err := f.svc.GetStatus(context.Background(), f.requirementID.String())
	if err != nil {
		t.Fatalf("missing workflow must not be an error: %v", err)
	}
	if status.ApprovalStatus != model.ApprovalStatusNotRequired {
		t.Errorf("status %s, want not_required", status.ApprovalStatus)
	}
	if status.ApprovalProgress != nil {
		t.Error("expected nil progress without a workflow")
	}
}

func TestApproveOutcomeProgression(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)
	ctx := context.Background()

	// First approver of two: vote recorded, level stays open
	res, err := f.svc.Approve(ctx, f.requirementID.String(), f.level1[0].String(), ApproveDTO{Comments: "fine by me"})
	if err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if res.Outcome != OutcomeDecisionRecorded {
		t.Errorf("outcome %s, want %s", res.Outcome, OutcomeDecisionRecorded)
	}
	if res.Status.ApprovalStatus != model.ApprovalStatusPending {
		t.Errorf("status %s", res.Status.ApprovalStatus)
	}

	// Second approver settles level 1: workflow advances
	res, err = f.svc.Approve(ctx, f.requirementID.String(), f.level1[1].String(), ApproveDTO{})
	if err != nil {
		t.Fatalf("second approve failed: %v", err)
	}
	if res.Outcome != OutcomeLevelAdvanced {
		t.Errorf("outcome %s, want %s", res.Outcome, OutcomeLevelAdvanced)
	}
	wf := f.workflows.workflows[f.requirementID]
	if wf.CurrentLevel != 2 {
		t.Errorf("current level %d, want 2", wf.CurrentLevel)
	}
	if wf.Levels[0].Status != model.LevelStatusCompleted || wf.Levels[1].Status != model.LevelStatusInProgress {
		t.Errorf("level statuses %s/%s", wf.Levels[0].Status, wf.Levels[1].Status)
	}

	// Final approver: fully approved
	res, err = f.svc.Approve(ctx, f.requirementID.String(), f.level2.String(), ApproveDTO{})
	if err != nil {
		t.Fatalf("final approve failed: %v", err)
	}
	if res.Outcome != OutcomeApproved {
		t.Errorf("outcome %s, want %s", res.Outcome, OutcomeApproved)
	}
	if wf.Status != model.ApprovalStatusApproved {
		t.Errorf("workflow status %s", wf.Status)
	}
	if got := f.requirements.statuses[f.requirementID]; got != model.RequirementStatusApproved {
		t.Errorf("requirement status %s", got)
	}
}

func TestApproveRejectsNonApprover(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)

	// level-2 approver cannot vote while level 1 is open
	_, err := f.svc.Approve(context.Background(), f.requirementID.String(), f.level2.String(), ApproveDTO{})
	if err == nil {
		t.Fatal("expected error for out-of-turn approver")
	}
}

func TestRejectRequiresNonBlankReason(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)
	callsBefore := f.workflows.getCalls

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.Reject(context.Background(), f.requirementID.String(), f.level1[0].String(), RejectDTO{Reason: reason})
		if !errors.Is(err, ErrReasonRequired) {
			t.Errorf("reason %q: got %v, want ErrReasonRequired", reason, err)
		}
	}

	// The precondition fires before any repository work
	if f.workflows.getCalls != callsBefore {
		t.Errorf("workflow was fetched %d times despite blank reason", f.workflows.getCalls-callsBefore)
	}
	if f.workflows.decisionSaves != 0 {
		t.Errorf("%d decisions written despite blank reason", f.workflows.decisionSaves)
	}
}

func TestRejectTerminatesWorkflow(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)

	status, err := f.svc.Reject(context.Background(), f.requirementID.String(), f.level1[0].String(), RejectDTO{
		Reason:            "  budget unjustified  ",
		AllowResubmission: true,
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if status.ApprovalStatus != model.ApprovalStatusRejected {
		t.Errorf("status %s", status.ApprovalStatus)
	}

	wf := f.workflows.workflows[f.requirementID]
	if wf.RejectionReason != "budget unjustified" {
		t.Errorf("reason not trimmed: %q", wf.RejectionReason)
	}
	if !wf.AllowResubmission {
		t.Error("resubmission permission not stored")
	}
	if wf.Levels[1].Status != model.LevelStatusSkipped {
		t.Errorf("later level status %s, want skipped", wf.Levels[1].Status)
	}
	if got := f.requirements.statuses[f.requirementID]; got != model.RequirementStatusRejected {
		t.Errorf("requirement status %s", got)
	}
}

func TestResubmissionBlockedWithoutPermission(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)

	if _, err := f.svc.Reject(context.Background(), f.requirementID.String(), f.level1[0].String(), RejectDTO{
		Reason: "incomplete scope",
	}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	_, err := f.svc.SubmitForApproval(context.Background(), f.requirementID.String(), f.level1[0].String(), SubmitApprovalDTO{
		SelectedApprovalMatrixID: f.matrixID.String(),
	})
	if err == nil {
		t.Fatal("resubmission allowed despite AllowResubmission=false")
	}
}

func TestResubmissionReplacesRejectedWorkflow(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)
	ctx := context.Background()

	if _, err := f.svc.Reject(ctx, f.requirementID.String(), f.level1[0].String(), RejectDTO{
		Reason:            "scope too broad",
		AllowResubmission: true,
	}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	status, err := f.svc.SubmitForApproval(ctx, f.requirementID.String(), f.level1[0].String(), SubmitApprovalDTO{
		SelectedApprovalMatrixID: f.matrixID.String(),
	})
	if err != nil {
		t.Fatalf("permitted resubmission failed: %v", err)
	}
	if status.ApprovalStatus != model.ApprovalStatusPending {
		t.Errorf("status %s, want pending", status.ApprovalStatus)
	}

	// The rejected workflow was removed so the fresh one could be inserted
	// past the requirement_id uniqueness constraint
	if f.workflows.deletes != 1 {
		t.Errorf("%d workflow deletes, want 1", f.workflows.deletes)
	}
	wf := f.workflows.workflows[f.requirementID]
	if wf == nil {
		t.Fatal("no workflow after resubmission")
	}
	if wf.Status != model.ApprovalStatusPending {
		t.Errorf("workflow status %s", wf.Status)
	}
	if wf.RejectionReason != "" || wf.CurrentLevel != 1 {
		t.Errorf("stale state carried over: reason=%q level=%d", wf.RejectionReason, wf.CurrentLevel)
	}
	if wf.Levels[0].Status != model.LevelStatusInProgress {
		t.Errorf("level 1 status %s, want in_progress", wf.Levels[0].Status)
	}
	if got := f.requirements.statuses[f.requirementID]; got != model.RequirementStatusPendingApproval {
		t.Errorf("requirement status %s", got)
	}
}

func TestApprovalNotificationsEmitted(t *testing.T) {
	f := newApprovalFixture(t)
	f.submit(t)

	if len(f.notifier.events) == 0 {
		t.Error("no notification on submit")
	}

	before := len(f.notifier.events)
	if _, err := f.svc.Approve(context.Background(), f.requirementID.String(), f.level1[0].String(), ApproveDTO{}); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.events) != before+1 {
		t.Error("no notification on approve")
	}
}
