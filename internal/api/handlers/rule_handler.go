package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/services"
)

type RuleHandler struct {
	rules    *services.RuleService
	rulesets *services.RulesetService
}

func NewRuleHandler(rules *services.RuleService, rulesets *services.RulesetService) *RuleHandler {
	return &RuleHandler{rules: rules, rulesets: rulesets}
}

// Get returns a rule by pk, or by sid with ?key=sid. AJAX requests always
// address the rule by sid and get the short form.
func (h *RuleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if isAJAX(c) {
		detail, err := h.rules.RuleBySID(ctx, id)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"msg":     detail.Rule.Msg,
			"sid":     detail.Rule.SID,
			"content": detail.Rule.Content,
		})
		return
	}

	var (
		detail *services.RuleDetail
		err    error
	)
	switch c.DefaultQuery("key", "pk") {
	case "pk":
		detail, err = h.rules.Rule(ctx, id)
	case "sid":
		detail, err = h.rules.RuleBySID(ctx, id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be pk or sid"})
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type suppressRuleRequest struct {
	Ruleset uint `json:"ruleset" binding:"required"`
}

// Suppress adds the rule, addressed by sid, to a ruleset's suppression set.
func (h *RuleHandler) Suppress(c *gin.Context) {
	sid, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req suppressRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := h.rulesets.SuppressBySID(c.Request.Context(), req.Ruleset, sid)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule, "ruleset": req.Ruleset})
}
