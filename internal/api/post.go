package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/middleware"
	"github.com/talimuddin/roomhub/internal/service"
)

type PostHandler struct {
	svc    *service.RoomService
	logger *zap.Logger
}

func NewPostHandler(svc *service.RoomService, logger *zap.Logger) *PostHandler {
	return &PostHandler{svc: svc, logger: logger}
}

type createPostRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *PostHandler) Create(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.svc.CreateRoomPost(c.Request.Context(), roomID, middleware.GetUserID(c), req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": post})
}

func (h *PostHandler) List(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	posts, pagination, err := h.svc.ListRoomPosts(c.Request.Context(), roomID, middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "pagination": pagination})
}

func (h *PostHandler) MarkRead(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return
	}

	if err := h.svc.MarkPostRead(c.Request.Context(), roomID, postID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Post marked as read"}})
}
