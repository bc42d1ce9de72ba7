package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/service"
)

func TestRespondError_KindMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.NotFound("Room not found"), http.StatusNotFound},
		{"forbidden", service.Forbidden("Permission denied"), http.StatusForbidden},
		{"validation", service.Invalid("Room name is required"), http.StatusBadRequest},
		{"conflict", service.Conflict("Already a member of this room"), http.StatusConflict},
		{"invalid state", service.InvalidState("This request has already been accepted"), http.StatusConflict},
		{"internal", errors.New("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)

			respondError(c, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)

	respondError(c, zap.NewNop(), errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "Internal server error")
}
