package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/middleware"
  "github.com/wishcord/wishcord-backend/internal/services"
)

type ReactionHandler struct {
  log             *logger.Logger
  reactionService services.ReactionService
}

func NewReactionHandler(log *logger.Logger, reactionService services.ReactionService) *ReactionHandler {
  return &ReactionHandler{
    log:             log.With("handler", "ReactionHandler"),
    reactionService: reactionService,
  }
}

type reactionRequest struct {
  WishID        string `json:"wish_id"`
  WalletAddress string `json:"wallet_address"`
  Emoji         string `json:"emoji"`
  Action        string `json:"action"` // "add" (default) or "remove"
}

// POST /api/reactions
func (h *ReactionHandler) React(c *gin.Context) {
  var req reactionRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
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

  switch req.Action {
  case "", "add":
    created, err := h.reactionService.Add(c.Request.Context(), wishID, wallet, req.Emoji)
    if err != nil {
      RespondError(c, http.StatusBadRequest, err)
      return
    }
    if !created {
      RespondOK(c, gin.H{"outcome": "already_exists"})
      return
    }
    RespondOK(c, gin.H{"outcome": "added"})
  case "remove":
    if err := h.reactionService.Remove(c.Request.Context(), wishID, wallet, req.Emoji); err != nil {
      RespondError(c, http.StatusBadRequest, err)
      return
    }
    RespondOK(c, gin.H{"outcome": "removed"})
  default:
    RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown action %q", req.Action))
  }
}

// GET /api/reactions?wish_id=
func (h *ReactionHandler) ListReactions(c *gin.Context) {
  wishID, err := uuid.Parse(c.Query("wish_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid wish_id: %w", err))
    return
  }

  groups, err := h.reactionService.ListGrouped(c.Request.Context(), wishID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"reactions": groups})
}
