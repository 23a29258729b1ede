package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/services"
)

// DashboardSize is the number of rulesets and sources on the dashboard.
const DashboardSize = 5

type DashboardHandler struct {
	sources  *services.SourceService
	rulesets *services.RulesetService
}

func NewDashboardHandler(sources *services.SourceService, rulesets *services.RulesetService) *DashboardHandler {
	return &DashboardHandler{sources: sources, rulesets: rulesets}
}

// Index lists the most recently created rulesets and sources.
func (h *DashboardHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	rulesets, err := h.rulesets.Latest(ctx, DashboardSize)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	sources, err := h.sources.Latest(ctx, DashboardSize)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rulesets": rulesets, "sources": sources})
}
