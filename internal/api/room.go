package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/middleware"
	"github.com/talimuddin/roomhub/internal/repository"
	"github.com/talimuddin/roomhub/internal/service"
)

// maxCoverSize caps cover image uploads at 5 MiB.
const maxCoverSize = 5 << 20

type RoomHandler struct {
	svc    *service.RoomService
	logger *zap.Logger
}

func NewRoomHandler(svc *service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{svc: svc, logger: logger}
}

type createRoomRequest struct {
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	RoomType           string `json:"room_type" binding:"required"`
	CoverImage         string `json:"cover_image"`
	AllowMemberPosting *bool  `json:"allow_member_posting"`
	AllowComments      *bool  `json:"allow_comments"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, meta, err := h.svc.CreateRoom(c.Request.Context(), middleware.GetUserID(c), service.CreateRoomInput{
		Name:               req.Name,
		Description:        req.Description,
		RoomType:           req.RoomType,
		CoverImage:         req.CoverImage,
		AllowMemberPosting: req.AllowMemberPosting,
		AllowComments:      req.AllowComments,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": room, "meta": meta})
}

type joinRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
}

func (h *RoomHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.JoinByCode(c.Request.Context(), middleware.GetUserID(c), req.JoinCode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}

func (h *RoomHandler) Details(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	room, meta, err := h.svc.GetRoomDetails(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": room, "meta": meta})
}

type updateRoomRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	RoomType           *string `json:"room_type"`
	AllowMemberPosting *bool   `json:"allow_member_posting"`
	AllowComments      *bool   `json:"allow_comments"`
}

func (h *RoomHandler) Update(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.svc.UpdateRoom(c.Request.Context(), roomID, middleware.GetUserID(c), repository.RoomPatch{
		Name:               req.Name,
		Description:        req.Description,
		RoomType:           req.RoomType,
		AllowMemberPosting: req.AllowMemberPosting,
		AllowComments:      req.AllowComments,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": room})
}

func (h *RoomHandler) UpdateCover(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	header, err := c.FormFile("cover_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cover image missing"})
		return
	}
	if header.Size > maxCoverSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cover image too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	room, err := h.svc.UpdateCoverImage(c.Request.Context(), roomID, middleware.GetUserID(c),
		file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": room})
}

func (h *RoomHandler) ToggleArchive(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	archived, err := h.svc.ToggleArchive(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"is_archived": archived}})
}

func (h *RoomHandler) Delete(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	if err := h.svc.DeleteRoom(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Room deleted successfully"}})
}

func (h *RoomHandler) ToggleHide(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	hidden, err := h.svc.ToggleHide(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"is_hidden": hidden}})
}

func (h *RoomHandler) Leave(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	if err := h.svc.LeaveRoom(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Left room successfully"}})
}

func (h *RoomHandler) Mine(c *gin.Context) {
	items, pagination, err := h.svc.MyRooms(c.Request.Context(), middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "pagination": pagination})
}

func (h *RoomHandler) Hidden(c *gin.Context) {
	items, pagination, err := h.svc.HiddenRooms(c.Request.Context(), middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "pagination": pagination})
}

func (h *RoomHandler) Archived(c *gin.Context) {
	items, pagination, err := h.svc.ArchivedRooms(c.Request.Context(), middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "pagination": pagination})
}

func (h *RoomHandler) Reconcile(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	room, err := h.svc.ReconcileCounters(c.Request.Context(), roomID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": room})
}
