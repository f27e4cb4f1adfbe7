package handler

import (
	"net/http"

	"procurehub/internal/middleware"
	"procurehub/internal/service"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	draftService service.DraftService
}

func NewDraftHandler(draftService service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

func (h *DraftHandler) RegisterRoutes(router *gin.RouterGroup) {
	drafts := router.Group("/api/drafts")
	drafts.Use(middleware.RequirePermission("requirements.write"))
	{
		drafts.PUT("/:key", h.SaveDraft)
		drafts.GET("/:key", h.RestoreDraft)
		drafts.DELETE("/:key", h.ClearDraft)
	}
}

// SaveDraft persists an auto-save snapshot of an in-progress form
// @Summary      Save draft
// @Description  Persists the draft payload. Saves for one draft key are serialized server-side; a stale version is discarded and the stored state returned instead.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key      path      string  true  "Draft key"
// @Param        payload  body      service.SaveDraftDTO  true  "Draft snapshot"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/drafts/{key} [put]
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	var req service.SaveDraftDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	draft, err := h.draftService.SaveDraft(c.Request.Context(), c.Param("key"), userIDFrom(c), req)
	if err != nil {
		if err == service.ErrInvalidPayload {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// RestoreDraft returns the stored draft for a key
// @Summary      Restore draft
// @Description  Returns the saved draft, falling back to the resilience cache when the authoritative store has no copy. A missing draft yields data=null, not an error.
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Draft key"
// @Success      200  {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts/{key} [get]
func (h *DraftHandler) RestoreDraft(c *gin.Context) {
	draft, err := h.draftService.RestoreDraft(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	// draft may be nil — absent drafts are a normal state
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// ClearDraft deletes the draft from both sinks
// @Summary      Clear draft
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Draft key"
// @Success      200  {object}  response.Response
// @Router       /api/drafts/{key} [delete]
func (h *DraftHandler) ClearDraft(c *gin.Context) {
	if err := h.draftService.ClearDraft(c.Request.Context(), c.Param("key"), userIDFrom(c)); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"cleared": true}))
}
