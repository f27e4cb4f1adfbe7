package handler

import (
	"errors"
	"net/http"

	"procurehub/internal/kvstore"
	"procurehub/internal/middleware"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	sessions *kvstore.PricingSessionStore
}

func NewPricingHandler(sessions *kvstore.PricingSessionStore) *PricingHandler {
	return &PricingHandler{sessions: sessions}
}

func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/pricing-sessions")
	group.Use(middleware.RequirePermission("requirements.read"))
	{
		group.POST("/:sessionId", h.SaveSelection)
		group.GET("/:sessionId", h.GetSelection)
		group.DELETE("/:sessionId", h.ClearSelection)
	}
}

// SaveSelection stores the session's pricing selection with a 30-minute expiry
// @Summary      Save pricing selection
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "Session ID"
// @Param        payload    body      kvstore.PricingSelection  true  "Selection state"
// @Success      200        {object}  response.Response
// @Router       /api/pricing-sessions/{sessionId} [post]
func (h *PricingHandler) SaveSelection(c *gin.Context) {
	var sel kvstore.PricingSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	sel.SessionID = c.Param("sessionId")

	if err := h.sessions.Save(c.Request.Context(), sel); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"saved": true}))
}

// GetSelection returns the session's pricing selection if still valid
// @Summary      Get pricing selection
// @Description  Returns the stored selection. Expired or missing sessions yield 404.
// @Tags         pricing
// @Produce      json
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "Session ID"
// @Success      200        {object}  response.Response{data=kvstore.PricingSelection}
// @Failure      404        {object}  response.Response
// @Router       /api/pricing-sessions/{sessionId} [get]
func (h *PricingHandler) GetSelection(c *gin.Context) {
	sel, err := h.sessions.Load(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Pricing session not found or expired"))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sel))
}

// ClearSelection drops the session state
// @Summary      Clear pricing selection
// @Tags         pricing
// @Produce      json
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "Session ID"
// @Success      200        {object}  response.Response
// @Router       /api/pricing-sessions/{sessionId} [delete]
func (h *PricingHandler) ClearSelection(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context(), c.Param("sessionId")); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"cleared": true}))
}
