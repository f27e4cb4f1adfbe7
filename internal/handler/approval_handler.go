package handler

import (
	"errors"
	"net/http"

	"procurehub/internal/middleware"
	"procurehub/internal/service"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/approval-matrices", middleware.RequirePermission("approvals.read"), h.ListMatrices)

	reqs := router.Group("/api/requirements")
	{
		reqs.POST("/:id/submit-approval", middleware.RequirePermission("requirements.write"), h.SubmitForApproval)
		reqs.GET("/:id/approval-status", middleware.RequirePermission("approvals.read"), h.GetApprovalStatus)
		reqs.POST("/:id/approve", middleware.RequirePermission("approvals.decide"), h.Approve)
		reqs.POST("/:id/reject", middleware.RequirePermission("approvals.decide"), h.Reject)
	}
}

// SubmitForApproval starts an approval workflow for a draft requirement
// @Summary      Submit requirement for approval
// @Description  Instantiates the selected approval matrix as a live workflow; the first level opens immediately
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Requirement ID"
// @Param        payload  body      service.SubmitApprovalDTO  true  "Matrix selection"
// @Success      200      {object}  response.Response{data=service.ApprovalStatusResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requirements/{id}/submit-approval [post]
func (h *ApprovalHandler) SubmitForApproval(c *gin.Context) {
	var req service.SubmitApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.SubmitForApproval(c.Request.Context(), c.Param("id"), userIDFrom(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetApprovalStatus returns the approval state for a requirement
// @Summary      Get approval status
// @Description  Returns the workflow status and level-by-level progress. A requirement without a workflow reports not_required with null progress.
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requirement ID"
// @Success      200  {object}  response.Response{data=service.ApprovalStatusResponse}
// @Router       /api/requirements/{id}/approval-status [get]
func (h *ApprovalHandler) GetApprovalStatus(c *gin.Context) {
	status, err := h.approvalService.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// Approve records the caller's approval at the current workflow level
// @Summary      Approve requirement
// @Description  Records one approver's decision. The outcome reports whether the vote was merely recorded, advanced the workflow a level, or fully approved the requirement.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Requirement ID"
// @Param        payload  body      service.ApproveDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.ApproveResult}
// @Failure      400      {object}  response.Response
// @Router       /api/requirements/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req service.ApproveDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body is fine — comments are optional
		req = service.ApproveDTO{}
	}

	result, err := h.approvalService.Approve(c.Request.Context(), c.Param("id"), userIDFrom(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject rejects the requirement at the current workflow level
// @Summary      Reject requirement
// @Description  Rejects the workflow. A non-blank reason is mandatory and checked before any state is touched.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Requirement ID"
// @Param        payload  body      service.RejectDTO  true  "Reason, optional comments, resubmission permission"
// @Success      200      {object}  response.Response{data=service.ApprovalStatusResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requirements/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req service.RejectDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), userIDFrom(c), req)
	if err != nil {
		if errors.Is(err, service.ErrReasonRequired) {
			c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListMatrices returns the available approval matrices
// @Summary      List approval matrices
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/approval-matrices [get]
func (h *ApprovalHandler) ListMatrices(c *gin.Context) {
	matrices, err := h.approvalService.ListMatrices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, matrices))
}
