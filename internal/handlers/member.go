package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/middleware"
  "github.com/wishcord/wishcord-backend/internal/services"
)

type MemberHandler struct {
  log           *logger.Logger
  memberService services.MemberService
}

func NewMemberHandler(log *logger.Logger, memberService services.MemberService) *MemberHandler {
  return &MemberHandler{
    log:           log.With("handler", "MemberHandler"),
    memberService: memberService,
  }
}

type activityRequest struct {
  WalletAddress string `json:"wallet_address"`
  Username      string `json:"username"`
  Avatar        string `json:"avatar"`
}

// POST /api/members/activity
func (h *MemberHandler) RecordActivity(c *gin.Context) {
  var req activityRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
    return
  }
  wallet := req.WalletAddress
  if wallet == "" {
    wallet = middleware.WalletFromContext(c)
  }
  if wallet == "" {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("wallet_address is required"))
    return
  }

  member, err := h.memberService.RecordActivity(c.Request.Context(), wallet, req.Username, req.Avatar)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"member": member})
}

// GET /api/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
  members, err := h.memberService.List(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"members": members})
}
