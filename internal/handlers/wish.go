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
  "github.com/wishcord/wishcord-backend/internal/personas"
  "github.com/wishcord/wishcord-backend/internal/services"
)

type WishHandler struct {
  log         *logger.Logger
  wishService services.WishService
  enrichment  services.EnrichmentService
}

func NewWishHandler(log *logger.Logger, wishService services.WishService, enrichment services.EnrichmentService) *WishHandler {
  return &WishHandler{
    log:         log.With("handler", "WishHandler"),
    wishService: wishService,
    enrichment:  enrichment,
  }
}

type createWishRequest struct {
  WishText      string `json:"wishText"`
  Persona       string `json:"persona"`
  WalletAddress string `json:"walletAddress"`
  Username      string `json:"username"`
  Avatar        string `json:"avatar"`
  ImageURL      string `json:"imageUrl"`
  AudioURL      string `json:"audioUrl"`
  AudioPath     string `json:"audioPath"`
}

// POST /api/wish
// Persists the wish and responds immediately; enrichment runs off the job
// queue and is observed via GET /api/wishes/:id or SSE.
func (h *WishHandler) CreateWish(c *gin.Context) {
  var req createWishRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
    return
  }
  if req.WishText == "" {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("wishText is required"))
    return
  }
  if req.Persona == "" {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("persona is required"))
    return
  }
  if !personas.IsValid(req.Persona) {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown persona %q", req.Persona))
    return
  }

  wallet := req.WalletAddress
  if wallet == "" {
    wallet = middleware.WalletFromContext(c)
  }

  wish, err := h.wishService.Create(c.Request.Context(), services.CreateWishInput{
    WishText:      req.WishText,
    Persona:       req.Persona,
    WalletAddress: wallet,
    Username:      req.Username,
    Avatar:        req.Avatar,
    ImageURL:      req.ImageURL,
    AudioURL:      req.AudioURL,
    AudioPath:     req.AudioPath,
  })
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  RespondCreated(c, gin.H{"wish": wish})
}

type generateWishRequest struct {
  WishID string `json:"wishId"`
}

// POST /api/wish/generate
// Synchronous re-drive of enrichment for an existing wish. Unlike the
// create path this awaits the result and reports elapsed time.
func (h *WishHandler) GenerateWish(c *gin.Context) {
  var req generateWishRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
    return
  }
  wishID, err := uuid.Parse(req.WishID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid wishId: %w", err))
    return
  }

  result, err := h.enrichment.RunNow(c.Request.Context(), wishID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      RespondError(c, http.StatusNotFound, fmt.Errorf("wish not found"))
      return
    }
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  RespondOK(c, gin.H{
    "aiReply":    result.AIReply,
    "aiAudioUrl": result.AIAudioURL,
    "elapsed":    result.Elapsed.Milliseconds(),
  })
}

// GET /api/wishes
func (h *WishHandler) ListWishes(c *gin.Context) {
  limit := intQuery(c, "limit", 50)
  offset := intQuery(c, "offset", 0)

  wishes, err := h.wishService.List(c.Request.Context(), limit, offset)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  RespondOK(c, gin.H{"wishes": wishes})
}

// GET /api/wishes/:id
// Point status read used by the client's bounded poll.
func (h *WishHandler) GetWish(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid wish id: %w", err))
    return
  }

  status, err := h.wishService.GetStatus(c.Request.Context(), id)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      RespondError(c, http.StatusNotFound, fmt.Errorf("wish not found"))
      return
    }
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  payload := gin.H{
    "ai_reply":      status.AIReply,
    "ai_status":     status.AIStatus,
    "ai_audio_url":  status.AIAudioURL,
    "ai_audio_path": status.AIAudioPath,
  }
  if status.AIError != "" {
    payload["ai_error"] = status.AIError
  }
  RespondOK(c, payload)
}
