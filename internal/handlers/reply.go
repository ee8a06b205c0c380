package handlers

import (
  "errors"
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/middleware"
  "github.com/wishcord/wishcord-backend/internal/services"
)

type ReplyHandler struct {
  log          *logger.Logger
  replyService services.ReplyService
}

func NewReplyHandler(log *logger.Logger, replyService services.ReplyService) *ReplyHandler {
  return &ReplyHandler{
    log:          log.With("handler", "ReplyHandler"),
    replyService: replyService,
  }
}

type createReplyRequest struct {
  WishID        string `json:"wish_id"`
  WalletAddress string `json:"wallet_address"`
  Username      string `json:"username"`
  Avatar        string `json:"avatar"`
  ReplyText     string `json:"reply_text"`
}

// POST /api/replies
// The user's reply is acknowledged immediately; a mentioned persona's
// answer shows up later as a new row.
func (h *ReplyHandler) CreateReply(c *gin.Context) {
  var req createReplyRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
    return
  }
  if req.ReplyText == "" {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("reply_text is required"))
    return
  }
  wishID, err := uuid.Parse(req.WishID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid wish_id: %w", err))
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

  reply, err := h.replyService.Create(c.Request.Context(), services.CreateReplyInput{
    WishID:        wishID,
    WalletAddress: wallet,
    Username:      req.Username,
    Avatar:        req.Avatar,
    ReplyText:     req.ReplyText,
  })
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      RespondError(c, http.StatusNotFound, fmt.Errorf("wish not found"))
      return
    }
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  RespondCreated(c, gin.H{"reply": reply})
}

// GET /api/replies?wish_id=
func (h *ReplyHandler) ListReplies(c *gin.Context) {
  wishID, err := uuid.Parse(c.Query("wish_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid wish_id: %w", err))
    return
  }

  replies, err := h.replyService.ListByWish(c.Request.Context(), wishID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"replies": replies})
}

// GET /api/replies/:id
func (h *ReplyHandler) GetReply(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid reply id: %w", err))
    return
  }

  reply, err := h.replyService.GetByID(c.Request.Context(), id)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      RespondError(c, http.StatusNotFound, fmt.Errorf("reply not found"))
      return
    }
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"reply": reply})
}
