package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/scirius/backend/internal/api/middleware"
	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/repository"
	"github.com/Wikid82/scirius/backend/internal/services"
)

// parseID reads a positive numeric path parameter. It writes a 400 and
// returns false when the value is malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) services.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return services.Page{Number: page, PerPage: perPage}.Normalize()
}

func isAJAX(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, feeds.ErrFetch),
		errors.Is(err, feeds.ErrInvalidArchive):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrInvalidSource),
		errors.Is(err, services.ErrCategoryNotInRuleset),
		errors.Is(err, services.ErrSourceNotInRuleset),
		errors.Is(err, services.ErrUnknownCommand),
		errors.Is(err, feeds.ErrUnsupportedMethod),
		errors.Is(err, feeds.ErrUnsupportedDatatype):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...} merged with extra. Unexpected
// errors are logged and reported without detail.
func respondError(c *gin.Context, err error, extra gin.H) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusInternalServerError {
		middleware.GetRequestLogger(c).WithError(err).Error("request failed")
		body["error"] = "internal server error"
	}
	for k, v := range extra {
		body[k] = v
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
