package handler

import (
	"net/http"

	"procurehub/internal/middleware"
	"procurehub/internal/service"
	"procurehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type OptionHandler struct {
	optionService service.OptionService
}

func NewOptionHandler(optionService service.OptionService) *OptionHandler {
	return &OptionHandler{optionService: optionService}
}

func (h *OptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/options", middleware.RequirePermission("requirements.read"), h.Lookup)
}

// Lookup returns dropdown options for one or more modules
// @Summary      Lookup dropdown options
// @Description  Resolves options for comma-joined module names, optionally narrowed to a requirement category
// @Tags         options
// @Produce      json
// @Security     BearerAuth
// @Param        modules   query     string  true   "Comma-joined module names"
// @Param        category  query     string  false  "Requirement category"
// @Success      200       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Router       /api/options [get]
func (h *OptionHandler) Lookup(c *gin.Context) {
	groups, err := h.optionService.Lookup(c.Request.Context(), c.Query("modules"), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}
