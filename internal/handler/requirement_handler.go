package handler

import (
	"errors"
	"net/http"

	"procurehub/internal/middleware"
	"procurehub/internal/repository"
	"procurehub/internal/service"
	"procurehub/pkg/pagination"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequirementHandler struct {
	requirementService service.RequirementService
}

func NewRequirementHandler(requirementService service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

func (h *RequirementHandler) RegisterRoutes(router *gin.RouterGroup) {
	reqs := router.Group("/api/requirements")
	{
		reqs.GET("", middleware.RequirePermission("requirements.read"), h.ListRequirements)
		reqs.POST("", middleware.RequirePermission("requirements.write"), h.CreateRequirement)
		reqs.GET("/:id", middleware.RequirePermission("requirements.read"), h.GetRequirement)
		reqs.PUT("/:id", middleware.RequirePermission("requirements.write"), h.UpdateRequirement)
		reqs.DELETE("/:id", middleware.RequirePermission("requirements.write"), h.DeleteRequirement)
		reqs.GET("/:id/checklist", middleware.RequirePermission("requirements.read"), h.GetChecklist)
		reqs.POST("/:id/publish", middleware.RequirePermission("requirements.publish"), h.PublishRequirement)
	}
}

// CreateRequirement creates a new draft requirement
// @Summary      Create requirement
// @Description  Creates a new requirement in draft status
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequirementRequest  true  "Requirement payload"
// @Success      201      {object}  response.Response{data=model.Requirement}
// @Failure      400      {object}  response.Response
// @Router       /api/requirements [post]
func (h *RequirementHandler) CreateRequirement(c *gin.Context) {
	var req service.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	requirement, err := h.requirementService.Create(c.Request.Context(), userIDFrom(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, requirement))
}

// ListRequirements returns requirements filtered by status/category
// @Summary      List requirements
// @Tags         requirements
// @Produce      json
// @Security     BearerAuth
// @Param        status    query  string  false  "Filter by status"
// @Param        category  query  string  false  "Filter by category"
// @Param        mine      query  bool    false  "Only the caller's requirements"
// @Success      200  {object}  response.Response
// @Router       /api/requirements [get]
func (h *RequirementHandler) ListRequirements(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.RequirementFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     params.Page,
		Limit:    params.Limit,
	}
	if c.Query("mine") == "true" {
		if uid, err := uuid.Parse(userIDFrom(c)); err == nil {
			filter.OwnerID = &uid
		}
	}

	requirements, total, err := h.requirementService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, requirements, total, params.Page, params.Limit))
}

// GetRequirement returns one requirement by id
// @Summary      Get requirement
// @Tags         requirements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requirement ID"
// @Success      200  {object}  response.Response{data=model.Requirement}
// @Failure      404  {object}  response.Response
// @Router       /api/requirements/{id} [get]
func (h *RequirementHandler) GetRequirement(c *gin.Context) {
	requirement, err := h.requirementService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Requirement not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requirement))
}

// UpdateRequirement updates an editable (draft/rejected) requirement
// @Summary      Update requirement
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Requirement ID"
// @Param        payload  body      service.UpdateRequirementRequest  true  "Fields to update"
// @Success      200      {object}  response.Response{data=model.Requirement}
// @Failure      400      {object}  response.Response
// @Router       /api/requirements/{id} [put]
func (h *RequirementHandler) UpdateRequirement(c *gin.Context) {
	var req service.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	requirement, err := h.requirementService.Update(c.Request.Context(), c.Param("id"), userIDFrom(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requirement))
}

// DeleteRequirement removes an unpublished requirement
// @Summary      Delete requirement
// @Tags         requirements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requirement ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/requirements/{id} [delete]
func (h *RequirementHandler) DeleteRequirement(c *gin.Context) {
	if err := h.requirementService.Delete(c.Request.Context(), c.Param("id"), userIDFrom(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetChecklist returns the required-fields checklist for the requirement
// @Summary      Get required-fields checklist
// @Description  Returns the ordered required-field list with per-field completion and the wizard step each field belongs to
// @Tags         requirements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requirement ID"
// @Success      200  {object}  response.Response{data=service.ChecklistResponse}
// @Router       /api/requirements/{id}/checklist [get]
func (h *RequirementHandler) GetChecklist(c *gin.Context) {
	checklist, err := h.requirementService.Checklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, checklist))
}

// PublishRequirement publishes a complete, approved requirement to vendors
// @Summary      Publish requirement
// @Description  Publishes the requirement. Blocked while the required-fields checklist is incomplete or approval is outstanding.
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Requirement ID"
// @Param        payload  body      service.PublishRequest  true  "Publish options"
// @Success      200      {object}  response.Response{data=service.PublishResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requirements/{id}/publish [post]
func (h *RequirementHandler) PublishRequirement(c *gin.Context) {
	var req service.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.requirementService.Publish(c.Request.Context(), c.Param("id"), userIDFrom(c), req)
	if err != nil {
		var checklistErr *service.ChecklistError
		if errors.As(err, &checklistErr) {
			// Incomplete fields are reported with their wizard steps so the
			// client can route the user to the right one
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status":         http.StatusUnprocessableEntity,
				"error":          checklistErr.Error(),
				"missing_fields": checklistErr.Missing,
			})
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// userIDFrom reads the authenticated user id set by the auth middleware
func userIDFrom(c *gin.Context) string {
	userID, _ := c.Get("userID")
	s, _ := userID.(string)
	return s
}
