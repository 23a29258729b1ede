package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/services"
)

type CategoryHandler struct {
	service *services.RuleService
}

func NewCategoryHandler(service *services.RuleService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) List(c *gin.Context) {
	listing, err := h.service.ListCategories(c.Request.Context(), parsePage(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Category(c.Request.Context(), id, parsePage(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, detail)
}
