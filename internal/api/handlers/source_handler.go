package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/services"
)

type SourceHandler struct {
	service *services.SourceService
}

func NewSourceHandler(service *services.SourceService) *SourceHandler {
	return &SourceHandler{service: service}
}

func (h *SourceHandler) List(c *gin.Context) {
	listing, err := h.service.List(c.Request.Context(), parsePage(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *SourceHandler) Create(c *gin.Context) {
	var in services.SourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, gin.H{"input": in})
		return
	}
	c.JSON(http.StatusCreated, src)
}

func (h *SourceHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *SourceHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.SourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src, err := h.service.Edit(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, gin.H{"input": in})
		return
	}
	c.JSON(http.StatusOK, src)
}

// Refresh fetches the source feed and merges it. A fetch failure is reported
// with the source so the client can render it inline.
func (h *SourceHandler) Refresh(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Refresh(c.Request.Context(), id)
	if err != nil {
		h.respondSyncError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SourceHandler) Diff(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	diff, err := h.service.Diff(c.Request.Context(), id)
	if err != nil {
		h.respondSyncError(c, id, err)
		return
	}
	src, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": src, "diff": diff})
}

func (h *SourceHandler) respondSyncError(c *gin.Context, id uint, err error) {
	if !errors.Is(err, feeds.ErrFetch) {
		respondError(c, err, nil)
		return
	}
	src, getErr := h.service.Get(c.Request.Context(), id)
	if getErr != nil {
		respondError(c, getErr, nil)
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusBadGateway, gin.H{
		"error":  fmt.Sprintf("Can not fetch data: %v", err),
		"source": src,
	})
}
