package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/middleware"
	"github.com/talimuddin/roomhub/internal/service"
)

type MembershipHandler struct {
	svc    *service.RoomService
	logger *zap.Logger
}

func NewMembershipHandler(svc *service.RoomService, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{svc: svc, logger: logger}
}

func (h *MembershipHandler) ListMembers(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	members, pagination, meta, err := h.svc.ListMembers(c.Request.Context(), roomID, middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": members, "meta": meta, "pagination": pagination})
}

func (h *MembershipHandler) ListRequests(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	requests, pagination, err := h.svc.ListPendingRequests(c.Request.Context(), roomID, middleware.GetUserID(c), pageRequest(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests, "pagination": pagination})
}

func (h *MembershipHandler) Approve(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	membershipID, ok := uuidParam(c, "membershipId")
	if !ok {
		return
	}

	if err := h.svc.ApproveRequest(c.Request.Context(), roomID, membershipID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Request approved"}})
}

func (h *MembershipHandler) Reject(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	membershipID, ok := uuidParam(c, "membershipId")
	if !ok {
		return
	}

	if err := h.svc.RejectRequest(c.Request.Context(), roomID, membershipID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Request rejected"}})
}

type promoteRequest struct {
	IsAdmin *bool `json:"is_admin"`
	IsCR    *bool `json:"is_cr"`
}

func (h *MembershipHandler) Promote(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}
	membershipID, ok := uuidParam(c, "membershipId")
	if !ok {
		return
	}
	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IsAdmin == nil && req.IsCR == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := h.svc.PromoteMember(c.Request.Context(), roomID, membershipID, middleware.GetUserID(c), req.IsAdmin, req.IsCR); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Member updated"}})
}
