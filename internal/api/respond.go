package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/service"
)

// respondError maps the service error taxonomy to HTTP statuses in one
// place. Anything outside the taxonomy is an internal error and its detail
// stays out of the response body.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if kind, ok := service.KindOf(err); ok {
		status := http.StatusInternalServerError
		switch kind {
		case service.KindNotFound:
			status = http.StatusNotFound
		case service.KindForbidden:
			status = http.StatusForbidden
		case service.KindValidation:
			status = http.StatusBadRequest
		case service.KindConflict:
			status = http.StatusConflict
		case service.KindInvalidState:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	logger.Error("internal error",
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// pageRequest reads ?page= and ?limit=. Out-of-range values are clamped by
// the service layer, not rejected.
func pageRequest(c *gin.Context) models.PageRequest {
	var q struct {
		Page  int `form:"page"`
		Limit int `form:"limit"`
	}
	_ = c.ShouldBindQuery(&q)
	return models.PageRequest{Page: q.Page, Limit: q.Limit}
}
