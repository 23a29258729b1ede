package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/services"
)

// Ruleset detail modes.
const (
	ModeStruct  = "struct"
	ModeDisplay = "display"
	ModeExport  = "export"
)

// ExportFilename is the attachment name of an exported ruleset.
const ExportFilename = "scirius.rules"

type RulesetHandler struct {
	service *services.RulesetService
}

func NewRulesetHandler(service *services.RulesetService) *RulesetHandler {
	return &RulesetHandler{service: service}
}

func (h *RulesetHandler) List(c *gin.Context) {
	listing, err := h.service.List(c.Request.Context(), parsePage(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *RulesetHandler) Create(c *gin.Context) {
	var in services.RulesetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, gin.H{"input": in})
		return
	}
	c.JSON(http.StatusCreated, rs)
}

// Get renders the ruleset in the mode given by ?mode= (struct by default).
func (h *RulesetHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	switch mode := c.DefaultQuery("mode", ModeStruct); mode {
	case ModeStruct:
		view, err := h.service.Structure(ctx, id)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": mode, "ruleset": view.Ruleset, "sources": view.Sources, "suppressed_rules": view.SuppressedRules})
	case ModeDisplay:
		rs, rules, err := h.service.Generate(ctx, id)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": mode, "ruleset": rs, "rules": rules})
	case ModeExport:
		var buf bytes.Buffer
		if _, err := h.service.Export(ctx, id, &buf); err != nil {
			respondError(c, err, nil)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+ExportFilename)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be struct, display or export"})
	}
}

func (h *RulesetHandler) EditView(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.service.EditView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Edit applies a set_categories or remove_suppressed command.
func (h *RulesetHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cmd, err := decodeEditCommand(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs, err := h.service.ApplyEdit(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, rs)
}

// Suppressed applies a search or suppress command.
func (h *RulesetHandler) Suppressed(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cmd, err := decodeSuppressionCommand(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.ApplySuppression(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

type copyRulesetRequest struct {
	Name string `json:"name" binding:"required,rulesetname"`
}

func (h *RulesetHandler) Copy(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req copyRulesetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs, err := h.service.Copy(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err, gin.H{"input": req})
		return
	}
	c.JSON(http.StatusCreated, rs)
}

// Refresh updates every source of the ruleset. Partial failures are reported
// next to the successful results.
func (h *RulesetHandler) Refresh(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	results, err := h.service.Refresh(c.Request.Context(), id)
	if err != nil && len(results) == 0 {
		respondError(c, err, nil)
		return
	}
	body := gin.H{"results": results}
	if err != nil {
		_ = c.Error(err)
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *RulesetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ruleset deleted"})
}
